// Package services contains the application services of the image-generation
// client: the session store, the prompt and ops services, the generation
// controller and the log follower. They sit between the CLI and the API
// client and hold all client-side state.
package services
