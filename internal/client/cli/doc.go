// Package cli provides the interactive imagegen command-line client.
//
// It wires configuration, local storage, the API client and the services,
// and runs a REPL on top of them. Typical flow: restore the saved token,
// ask for one if it is missing or rejected, then execute user commands.
//
// Key features:
//   - Login / Logout / WhoAmI with a bearer token
//   - Prompt management: list, add, edit, delete
//   - Image generation in the background, cancellable with "cancel" or Ctrl-C
//   - Reserved instances, logs (one-shot or followed), latest image, coupons
//
// The REPL is started via App.Run(ctx), which blocks until the user exits.
package cli
