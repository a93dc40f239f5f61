// Package preflight provides readiness checks for the external pieces the
// miner setup depends on: the ore-cli binary, keypair files, the RPC
// endpoint, and the run/log directories.
//
// These checks run in two contexts:
//   - The start command runs RunAll before launching the daemon so obvious
//     misconfiguration fails fast instead of crash-looping the miner.
//   - The CLI "oreminer status" command uses individual check functions to
//     display environment health next to the daemon state.
//
// Each check is gated by its config toggle -- unset optional fields are
// skipped.
package preflight
