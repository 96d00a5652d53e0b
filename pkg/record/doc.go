// Package record defines the canonical output records produced by tgflow.
//
// Every identifier is carried as a decimal string so 64-bit values survive
// consumers whose numbers are IEEE doubles. Optional wire fields are pointers
// and encode as JSON null when the server did not send them.
package record
