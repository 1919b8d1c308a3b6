// Package hcl provides the concrete HCL implementation of the configuration
// loading interface defined in the `config` package. It is responsible for
// file discovery, parsing, expression evaluation and HCL-to-model
// translation.
//
// Expressions are evaluated with an `env` object holding the process
// environment, so page parameters can be taken from it:
//
//	page "index" {
//	  source = "index.html"
//	  params = { title = "Home", user = env.USER }
//	}
package hcl
