// Package repository defines the domain records of the token service and the
// repository contracts the storage adapters implement.
//
// The contracts are storage-agnostic; concrete implementations live in
// internal/store/adapters/.
//
//	┌──────────────────────────────────────────────┐
//	│      grant (flow controller, issuer)         │
//	└──────────────────────────────────────────────┘
//	                      │
//	                      ▼
//	┌──────────────────────────────────────────────┐
//	│     domain/repository (interfaces)           │
//	│  Client, Session, Token, Identity repos      │
//	└──────────────────────────────────────────────┘
//	                      │
//	           ┌──────────┴──────────┐
//	           ▼                     ▼
//	┌──────────────────┐   ┌──────────────────┐
//	│ adapters/memory  │   │   adapters/pg    │
//	└──────────────────┘   └──────────────────┘
//
// Conventions:
//   - context is always the first parameter
//   - token ids are stored and looked up by hash (see security/token)
//   - domain errors live in errors.go
package repository
