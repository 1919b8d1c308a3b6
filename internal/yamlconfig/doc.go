// Package yamlconfig provides a YAML implementation of the config.Loader
// interface. It reads the same model as the HCL loader:
//
//	settings:
//	  base: fragments
//	  timeout: 10s
//	pages:
//	  - name: index
//	    source: index.html
//	    output: public/index.html
//	    params:
//	      title: Home
//	      user: ${USER}
//
// Parameter values may reference environment variables as ${NAME}.
package yamlconfig
