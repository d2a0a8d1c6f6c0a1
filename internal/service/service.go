// Package service contains the logic of the native boot stages.
//
// It sits between the bootstrap pipeline and the repository layer: it
// reads and validates the ingredient dataset before handing it to the
// repository, and collects static assets on the local filesystem.
package service
