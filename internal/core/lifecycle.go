package core

import (
	"context"

	"gopkg.in/yaml.v3"
)

// Configurable modules receive their entry from the modules: section of
// tgflow.yaml before Provision. A module without an entry is not called.
type Configurable interface {
	Configure(node *yaml.Node) error
}

// Provisioner modules resolve services (session store, client factory,
// trigger hub) and fill defaults.
type Provisioner interface {
	Provision(ctx *AppContext) error
}

// Validator modules check their provisioned state. Validate runs after
// Provision and must not touch the network.
type Validator interface {
	Validate() error
}

// Starter modules own something that runs until shutdown, such as the
// HTTP listener or the polling scheduler.
type Starter interface {
	Start() error
}

// Stopper modules release what Start acquired. App stops them in reverse
// start order, bounded by the shutdown context.
type Stopper interface {
	Stop(ctx context.Context) error
}
