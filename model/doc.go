// Package model holds the price list for the chat models comicflow talks to.
//
// Prices are USD per million tokens. A run's accumulated token usage can be
// turned into an estimate:
//
//	if p, ok := model.Lookup(c.Model()); ok {
//		log.Printf("estimated cost $%.4f", p.Cost(c.Usage()))
//	}
//
// Unknown models have no pricing; callers should skip the estimate rather
// than report zero.
package model
