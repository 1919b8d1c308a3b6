// Package app contains the core application logic. It defines the main App
// struct, its configuration, and the primary execution lifecycle, decoupled
// from any specific entrypoint like a CLI or server.
//
// The App is the host adapter of the include resolver: it renders the
// configured pages to files, or serves them over HTTP and turns requests
// into source-change notifications and cache invalidations.
package app
