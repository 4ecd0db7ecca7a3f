// Package domain defines the core domain types and interfaces.
//
// Bin is the only entity. This package holds no implementation code beyond small value
// helpers; the store, hub and transport packages depend on it, never the other way round.
package domain
