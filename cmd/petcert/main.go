// petcert is the command line interface for the pet health certificate
// service: it registers pets, vets and clinics, signs medical records and
// issues and verifies the scannable certificates derived from them.
package main

import "github.com/animal-health-networks/petcert/internal/cli"

func main() {
	cli.Execute()
}
