// Package models defines domain entities and persistence interfaces for spotmix.
//
// The package contains two categories of types:
//
// 1. Generation vocabulary shared by the engine, the HTTP surface, and the CLI
//   - [Mode] : the four ways a playlist can be generated
//
// 2. Persistent Entities: database-backed records
//   - [Generation] : one successfully created playlist, kept in the local history log
//
// Persistent entities implement the [Model] interface and are stored through a [Repository].
package models
