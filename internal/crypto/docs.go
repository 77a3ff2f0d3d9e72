// crypto package provides cryptographic functions for the pet certificate service.
//
// these are low level functions - for standard usage (record signing, certificate issuance,
// certificate verification) you will not need to call these functions directly.
// See the records and hcert packages for high level functions.
package crypto
