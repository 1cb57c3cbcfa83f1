// Package identity defines the account records reported by sources and the
// matcher that decides whether a record is associated with a search fragment.
//
// Identity carries a primary identifier, optional secondary identifiers, and an
// ordered Properties list whose keys are chosen by each source. Matches applies
// case-folded substring containment across the identifying fields.
package identity
