// Package resolve maps loosely typed identifiers to connection-scoped peers.
package resolve

import (
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/flemzord/tgflow/internal/errs"
	"github.com/flemzord/tgflow/internal/mtproto"
)

// Kind is the lookup branch chosen for an identifier.
type Kind int

// Identifier kinds.
const (
	// KindNumeric is a raw peer ID, optionally negative.
	KindNumeric Kind = iota
	// KindName is anything else: a handle, link, phone number or "me".
	KindName
)

func (k Kind) String() string {
	if k == KindNumeric {
		return "numeric"
	}
	return "name"
}

var numericRe = regexp.MustCompile(`^-?\d+$`)

// Classify picks the lookup branch. Pure digits always win, so a handle
// that looks numeric is treated as an ID.
func Classify(identifier string) Kind {
	if numericRe.MatchString(identifier) {
		return KindNumeric
	}
	return KindName
}

// Cache is read access to the connection's entity cache.
type Cache interface {
	Peer(marked int64) (mtproto.PeerRef, bool)
	Username(name string) (mtproto.PeerRef, bool)
	Phone(digits string) (mtproto.PeerRef, bool)
	Self() (mtproto.PeerRef, bool)
}

// Directory asks the connection to fetch an entity into the cache.
type Directory interface {
	Self(ctx context.Context) error
	LookupID(ctx context.Context, marked int64) error
	LookupUsername(ctx context.Context, username string) error
	LookupPhone(ctx context.Context, phone string) error
}

// Resolver maps identifiers to peers. The answer is always read back from
// Cache; Directory only fills it.
type Resolver struct {
	Cache     Cache
	Directory Directory
}

// New returns a Resolver over cache and dir.
func New(cache Cache, dir Directory) *Resolver {
	return &Resolver{Cache: cache, Directory: dir}
}

// Resolve maps identifier to a peer or fails with errs.ErrNotFound.
func (r *Resolver) Resolve(ctx context.Context, identifier string) (mtproto.PeerRef, error) {
	identifier = strings.TrimSpace(identifier)
	if identifier == "" {
		return mtproto.PeerRef{}, errs.NotFoundf("empty identifier")
	}
	if Classify(identifier) == KindNumeric {
		return r.resolveID(ctx, identifier)
	}
	return r.resolveName(ctx, identifier)
}

func (r *Resolver) resolveID(ctx context.Context, identifier string) (mtproto.PeerRef, error) {
	marked, err := strconv.ParseInt(identifier, 10, 64)
	if err != nil {
		return mtproto.PeerRef{}, errs.NotFoundf("peer id %s out of range", identifier)
	}
	if p, ok := r.peerByID(marked); ok {
		return p, nil
	}
	if err := r.Directory.LookupID(ctx, marked); err != nil {
		return mtproto.PeerRef{}, err
	}
	if p, ok := r.peerByID(marked); ok {
		return p, nil
	}
	return mtproto.PeerRef{}, errs.NotFoundf("no entity with id %s is known to this session", identifier)
}

// peerByID reads the exact marked ID, falling back to the chat and channel
// forms of a bare positive ID.
func (r *Resolver) peerByID(marked int64) (mtproto.PeerRef, bool) {
	if p, ok := r.Cache.Peer(marked); ok {
		return p, true
	}
	if marked <= 0 {
		return mtproto.PeerRef{}, false
	}
	if p, ok := r.Cache.Peer(mtproto.MarkChat(marked)); ok {
		return p, true
	}
	return r.Cache.Peer(mtproto.MarkChannel(marked))
}

func (r *Resolver) resolveName(ctx context.Context, identifier string) (mtproto.PeerRef, error) {
	lower := strings.ToLower(identifier)
	if lower == "me" || lower == "self" {
		if p, ok := r.Cache.Self(); ok {
			return p, nil
		}
		if err := r.Directory.Self(ctx); err != nil {
			return mtproto.PeerRef{}, fmt.Errorf("resolve: self: %w", err)
		}
		if p, ok := r.Cache.Self(); ok {
			return p, nil
		}
		return mtproto.PeerRef{}, errs.NotFoundf("self user")
	}

	if phone, ok := phoneNumber(identifier); ok {
		if p, ok := r.Cache.Phone(phone); ok {
			return p, nil
		}
		if err := r.Directory.LookupPhone(ctx, phone); err != nil {
			return mtproto.PeerRef{}, err
		}
		if p, ok := r.Cache.Phone(phone); ok {
			return p, nil
		}
		return mtproto.PeerRef{}, errs.NotFoundf("no user with phone %s", identifier)
	}

	name := Username(identifier)
	if name == "" {
		return mtproto.PeerRef{}, errs.NotFoundf("cannot parse %q as a username", identifier)
	}
	if p, ok := r.Cache.Username(name); ok {
		return p, nil
	}
	if err := r.Directory.LookupUsername(ctx, name); err != nil {
		return mtproto.PeerRef{}, err
	}
	if p, ok := r.Cache.Username(name); ok {
		return p, nil
	}
	return mtproto.PeerRef{}, errs.NotFoundf("no entity with username %s", name)
}

// phoneNumber accepts "+" followed by digits and common separators.
func phoneNumber(s string) (string, bool) {
	if !strings.HasPrefix(s, "+") {
		return "", false
	}
	digits := make([]byte, 0, len(s))
	for _, c := range []byte(s[1:]) {
		switch {
		case c >= '0' && c <= '9':
			digits = append(digits, c)
		case c == ' ' || c == '-' || c == '(' || c == ')':
		default:
			return "", false
		}
	}
	if len(digits) == 0 {
		return "", false
	}
	return string(digits), true
}
