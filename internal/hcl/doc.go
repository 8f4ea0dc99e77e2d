// Package hcl loads graph descriptors written in HCL into the
// format-agnostic config model.
//
// A descriptor file declares any number of graphs:
//
//	graph "boot" {
//	  scope = "primary"
//
//	  node "config" {
//	    uses = "print"
//	    args = { message = "loading ${env("APP_ENV")} config" }
//	  }
//
//	  node "network" {
//	    uses       = "sleep"
//	    depends_on = ["config"]
//	    thread     = "serial"
//	    priority   = 5
//	  }
//	}
//
// Expressions may call env(name) and the upper, lower and format functions,
// and may read process.name and process.primary.
package hcl
