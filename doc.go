// Package stateshift holds the shared types of the stateshift code generator:
// the diagnostic error taxonomy and the incremental generation cache.
//
// stateshift turns a Go struct into a type-state machine. The struct and its
// operations are written as ordinary Go in a file guarded by the stateshift
// build tag and annotated with directives:
//
//	//go:build stateshift
//
//	//stateshift:type slots=3 default=Initial
//	//stateshift:states Initial, RaceSet, LevelSet
//	type PlayerBuilder struct {
//		race  Race
//		level int
//	}
//
//	//stateshift:require Initial, _, _
//	//stateshift:switch_to RaceSet, _, _
//	func (b PlayerBuilder) SetRace(race Race) PlayerBuilder {
//		return PlayerBuilder{race: race, level: b.level}
//	}
//
// The generator (see package compiler/gen and the stateshift command) writes a
// companion file in which PlayerBuilder carries one type parameter per state
// slot, every state is a sealed zero-size marker type, and SetRace becomes
//
//	func PlayerBuilderSetRace[B, C PlayerBuilderState](b PlayerBuilder[PlayerBuilderInitial, B, C], race Race) PlayerBuilder[PlayerBuilderRaceSet, B, C]
//
// so the Go type checker rejects every call made in the wrong state.
package stateshift
