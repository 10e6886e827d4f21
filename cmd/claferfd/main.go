// Command claferfd loads a YAML model, compiles it to a finite-domain
// constraint network and enumerates or optimizes its instances.
package main

func main() {
	Execute()
}
