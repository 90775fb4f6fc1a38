// Package store houses concrete implementations of the core.ObjectStore
// contract. The interface itself lives in the core package to centralize
// domain contracts; keeping only implementations here prevents higher level
// packages from depending on concrete storage.
//
// InMemory is the default volatile backend. The yamllog and sqlite
// sub-packages add write-through persistence of the immutable object log on
// top of it; additional backends (Redis, Postgres, ...) can be added as
// sub-packages without changing any calling code.
package store
