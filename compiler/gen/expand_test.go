package gen

import (
	"go/ast"
	"go/importer"
	"go/parser"
	"go/token"
	"go/types"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/syssam/stateshift"
)

const playerSrc = `//go:build stateshift

// Package player builds game characters.
package player

// Race of a player.
type Race int

const (
	Human Race = iota
	Orc
)

// Player is a finished character.
type Player struct {
	Race   Race
	Level  int
	Skills []string
}

// PlayerBuilder assembles a Player.
//
//stateshift:type slots=3 default=Initial
//stateshift:states Initial, RaceSet, LevelSet, SkillSlotsSet
type PlayerBuilder struct {
	race   Race
	level  int
	skills []string
}

// NewPlayerBuilder starts a build.
func NewPlayerBuilder() PlayerBuilder {
	return PlayerBuilder{}
}

// SetRace picks the race.
//stateshift:require Initial, _, _
//stateshift:switch_to RaceSet, _, _
func (b PlayerBuilder) SetRace(race Race) PlayerBuilder {
	return PlayerBuilder{race: race, level: b.level, skills: b.skills}
}

//stateshift:require _, Initial, _
//stateshift:switch_to _, LevelSet, _
func (b PlayerBuilder) SetLevel(level int) PlayerBuilder {
	return PlayerBuilder{race: b.race, level: level, skills: b.skills}
}

//stateshift:require _, _, Initial
//stateshift:switch_to _, _, SkillSlotsSet
func (b PlayerBuilder) SetSkillSlots(n int) PlayerBuilder {
	return PlayerBuilder{race: b.race, level: b.level, skills: make([]string, n)}
}

// Section: finishing.

//stateshift:require RaceSet, LevelSet, SkillSlotsSet
func (b PlayerBuilder) Build() Player {
	return Player{Race: b.race, Level: b.level, Skills: b.skills}
}

// Describe is available in every state.
func (b PlayerBuilder) Describe() string {
	return "player"
}
`

const boxSrc = `package box

// Maybe holds an optional value.
type Maybe[X any] struct {
	v  X
	ok bool
}

//stateshift:type slots=2 default=Empty
type Box[T any] struct {
	items []T
}

// NewBox returns an empty box.
func NewBox[T any]() *Box[T] {
	return &Box[T]{}
}

//stateshift:require Empty, _
//stateshift:switch_to Full, _
func (b *Box[T]) Put(v T) *Box[T] {
	return &Box[T]{append(b.items, v)}
}

//stateshift:require Full, _
//stateshift:switch_to Empty, _
func (b *Box[T]) Take() (Maybe[*Box[T]], []T, error) {
	return Maybe[*Box[T]]{v: &Box[T]{}, ok: true}, b.items, nil
}

//stateshift:require _, Empty
//stateshift:switch_to _, Sealed
func (b *Box[T]) Seal() *Box[T] {
	return &Box[T]{items: b.items}
}

// Len counts the items in any state.
func (b *Box[T]) Len() int {
	return len(b.items)
}
`

func expand(t *testing.T, src string, opts ...Option) *Result {
	t.Helper()
	cfg, err := NewConfig(opts...)
	require.NoError(t, err)
	res, err := Expand("input.go", []byte(src), cfg)
	require.NoError(t, err)
	require.NotNil(t, res.Code)
	return res
}

// typeCheck type-checks the generated code together with extra, a file of
// the same package exercising it.
func typeCheck(t *testing.T, pkg string, code []byte, extra string) error {
	t.Helper()
	fset := token.NewFileSet()
	files := make([]*ast.File, 0, 2)
	for name, src := range map[string]string{"generated.go": string(code), "use.go": extra} {
		if src == "" {
			continue
		}
		f, err := parser.ParseFile(fset, name, src, 0)
		require.NoError(t, err, name)
		files = append(files, f)
	}
	conf := types.Config{Importer: importer.Default()}
	_, err := conf.Check(pkg, fset, files, nil)
	return err
}

func TestExpandPlayer(t *testing.T) {
	res := expand(t, playerSrc)
	code := string(res.Code)

	assert.Equal(t, "input_stateshift.go", res.Output)
	assert.Equal(t, []string{"PlayerBuilder"}, res.Types)
	assert.Equal(t, 6, res.Operations)
	assert.Empty(t, res.Diagnostics)

	assert.True(t, strings.HasPrefix(code, DefaultHeader+"\n"))
	assert.Contains(t, code, "//go:build !stateshift\n")
	assert.Contains(t, code, "// Package player builds game characters.\npackage player")
	assert.NotContains(t, code, "//stateshift:")

	t.Run("registry", func(t *testing.T) {
		assert.Contains(t, code, "type sealedPlayerBuilder interface")
		assert.Contains(t, code, "type PlayerBuilderState interface")
		assert.Contains(t, code, "PlayerBuilderInitial | PlayerBuilderRaceSet | PlayerBuilderLevelSet | PlayerBuilderSkillSlotsSet")
		for _, m := range []string{"Initial", "RaceSet", "LevelSet", "SkillSlotsSet"} {
			assert.Contains(t, code, "type PlayerBuilder"+m+" struct{}")
			assert.Contains(t, code, "func (PlayerBuilder"+m+") isPlayerBuilderState() {}")
		}
		assert.Less(t, strings.Index(code, "type PlayerBuilderState interface"), strings.Index(code, "type Race int"))
	})
	t.Run("tracked struct", func(t *testing.T) {
		assert.Contains(t, code, "type PlayerBuilder[State1, State2, State3 PlayerBuilderState] struct {")
		assert.Contains(t, code, "[0]func() (State1, State2, State3)")
		assert.Contains(t, code, "// PlayerBuilder assembles a Player.")
	})
	t.Run("constructor", func(t *testing.T) {
		assert.Contains(t, code, "func NewPlayerBuilder() PlayerBuilder[PlayerBuilderInitial, PlayerBuilderInitial, PlayerBuilderInitial] {")
		assert.Contains(t, code, "return PlayerBuilder[PlayerBuilderInitial, PlayerBuilderInitial, PlayerBuilderInitial]{_state: [0]func() (PlayerBuilderInitial, PlayerBuilderInitial, PlayerBuilderInitial){}}")
	})
	t.Run("operations", func(t *testing.T) {
		assert.Contains(t, code, "// SetRace picks the race.\nfunc PlayerBuilderSetRace[B, C PlayerBuilderState](b PlayerBuilder[PlayerBuilderInitial, B, C], race Race) PlayerBuilder[PlayerBuilderRaceSet, B, C] {")
		assert.Contains(t, code, "return PlayerBuilder[PlayerBuilderRaceSet, B, C]{race: race, level: b.level, skills: b.skills, _state: [0]func() (PlayerBuilderRaceSet, B, C){}}")
		assert.Contains(t, code, "func PlayerBuilderSetLevel[A, C PlayerBuilderState](b PlayerBuilder[A, PlayerBuilderInitial, C], level int) PlayerBuilder[A, PlayerBuilderLevelSet, C] {")
		assert.Contains(t, code, "func PlayerBuilderSetSkillSlots[A, B PlayerBuilderState](b PlayerBuilder[A, B, PlayerBuilderInitial], n int) PlayerBuilder[A, B, PlayerBuilderSkillSlotsSet] {")
		assert.Contains(t, code, "func PlayerBuilderBuild(b PlayerBuilder[PlayerBuilderRaceSet, PlayerBuilderLevelSet, PlayerBuilderSkillSlotsSet]) Player {")
		assert.Contains(t, code, "func (b PlayerBuilder[A, B, C]) Describe() string {")
		assert.Contains(t, code, "// Section: finishing.")
	})
}

func TestExpandPlayerTypeChecks(t *testing.T) {
	res := expand(t, playerSrc)
	require.NoError(t, typeCheck(t, "player", res.Code, ""))

	tests := []struct {
		name string
		use  string
		ok   bool
	}{
		{
			name: "every slot set in any order",
			use: `package player

func legal() Player {
	b := NewPlayerBuilder()
	b1 := PlayerBuilderSetLevel(b, 3)
	b2 := PlayerBuilderSetRace(b1, Orc)
	b3 := PlayerBuilderSetSkillSlots(b2, 2)
	_ = b3.Describe()
	return PlayerBuilderBuild(b3)
}
`,
			ok: true,
		},
		{
			name: "state independent method in the initial state",
			use: `package player

func describe() string { return NewPlayerBuilder().Describe() }
`,
			ok: true,
		},
		{
			name: "build before any slot is set",
			use: `package player

func early() Player { return PlayerBuilderBuild(NewPlayerBuilder()) }
`,
		},
		{
			name: "race set twice",
			use: `package player

func twice() {
	_ = PlayerBuilderSetRace(PlayerBuilderSetRace(NewPlayerBuilder(), Human), Orc)
}
`,
		},
		{
			name: "build with one slot missing",
			use: `package player

func partial() Player {
	b := PlayerBuilderSetLevel(PlayerBuilderSetRace(NewPlayerBuilder(), Human), 1)
	return PlayerBuilderBuild(b)
}
`,
		},
		{
			name: "foreign marker",
			use: `package player

type Flying struct{}

func (Flying) isPlayerBuilderState() {}

var _ PlayerBuilder[Flying, PlayerBuilderInitial, PlayerBuilderInitial]
`,
		},
		{
			name: "constraint used as a value type",
			use: `package player

var _ PlayerBuilderState
`,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := typeCheck(t, "player", res.Code, tt.use)
			if tt.ok {
				assert.NoError(t, err)
			} else {
				assert.Error(t, err)
			}
		})
	}
}

func TestExpandGeneric(t *testing.T) {
	res := expand(t, boxSrc)
	code := string(res.Code)

	assert.Contains(t, code, "type Box[T any, State1, State2 BoxState] struct {")
	assert.Contains(t, code, "BoxEmpty | BoxFull | BoxSealed")
	assert.Contains(t, code, "func NewBox[T any]() *Box[T, BoxEmpty, BoxEmpty] {")
	assert.Contains(t, code, "func BoxPut[T any, B BoxState](b *Box[T, BoxEmpty, B], v T) *Box[T, BoxFull, B] {")
	assert.Contains(t, code, "return &Box[T, BoxFull, B]{[0]func() (BoxFull, B){}, append(b.items, v)}")
	assert.Contains(t, code, "func BoxTake[T any, B BoxState](b *Box[T, BoxFull, B]) (Maybe[*Box[T, BoxEmpty, B]], []T, error) {")
	assert.Contains(t, code, "return Maybe[*Box[T, BoxEmpty, B]]{v: &Box[T, BoxEmpty, B]{_state: [0]func() (BoxEmpty, B){}}, ok: true}, b.items, nil")
	assert.Contains(t, code, "func BoxSeal[T any, A BoxState](b *Box[T, A, BoxEmpty]) *Box[T, A, BoxSealed] {")
	assert.Contains(t, code, "func (b *Box[T, A, B]) Len() int {")

	require.NoError(t, typeCheck(t, "box", res.Code, `package box

func legal() int {
	b := BoxPut(NewBox[int](), 1)
	m, items, err := BoxTake(b)
	_, _ = items, err
	s := BoxSeal(BoxPut(m.v, 2))
	return s.Len() + m.v.Len()
}
`))
	assert.Error(t, typeCheck(t, "box", res.Code, `package box

func takeEmpty() { _, _, _ = BoxTake(NewBox[int]()) }
`))
	assert.Error(t, typeCheck(t, "box", res.Code, `package box

func sealTwice() { _ = BoxSeal(BoxSeal(NewBox[string]())) }
`))
}

func TestExpandIdempotent(t *testing.T) {
	for name, src := range map[string]string{"player": playerSrc, "box": boxSrc} {
		t.Run(name, func(t *testing.T) {
			first := expand(t, src)
			second := expand(t, src)
			assert.Equal(t, string(first.Code), string(second.Code))
		})
	}
}

func TestExpandSingleSlot(t *testing.T) {
	res := expand(t, `package door

//stateshift:type default=Locked
type Door struct{}

//stateshift:require Locked
//stateshift:switch_to Unlocked
func (d Door) Unlock() Door { return Door{} }

//stateshift:require Unlocked
//stateshift:switch_to Locked
func (d Door) Lock() Door { return Door{} }
`)
	code := string(res.Code)
	assert.Contains(t, code, "type Door[State1 DoorState] struct")
	assert.Contains(t, code, "func DoorUnlock(d Door[DoorLocked]) Door[DoorUnlocked] {")
	assert.Contains(t, code, "func DoorLock(d Door[DoorUnlocked]) Door[DoorLocked] {")

	require.NoError(t, typeCheck(t, "door", res.Code, `package door

func cycle() { _ = DoorLock(DoorUnlock(Door[DoorLocked]{})) }
`))
	assert.Error(t, typeCheck(t, "door", res.Code, `package door

func unlockTwice() { _ = DoorUnlock(DoorUnlock(Door[DoorLocked]{})) }
`))
}

func TestExpandMarkerCollidesWithOperation(t *testing.T) {
	cfg, err := NewConfig()
	require.NoError(t, err)
	_, err = Expand("door.go", []byte(`package door

//stateshift:type default=Closed
type Door struct{}

//stateshift:require Closed
//stateshift:switch_to Open
func (d Door) Open() Door { return Door{} }
`), cfg)
	require.Error(t, err)
	assert.True(t, stateshift.IsShapeError(err))
	assert.Contains(t, err.Error(), "DoorOpen")
}

func TestExpandFuncOverride(t *testing.T) {
	res := expand(t, `package door

//stateshift:type default=Closed
type Door struct{}

//stateshift:func Knock
func (d Door) Knock() Door { return d }

//stateshift:for Door
//stateshift:require Closed
func Inspect() string { return "closed" }
`)
	code := string(res.Code)
	assert.Contains(t, code, "func Knock[A DoorState](d Door[A]) Door[A] {")
	assert.Contains(t, code, "func Inspect() string {")
	require.NoError(t, typeCheck(t, "door", res.Code, ""))
}

func TestExpandUnnamedReceiver(t *testing.T) {
	res := expand(t, `package door

//stateshift:type default=Shut
type Door struct{}

//stateshift:require Shut
//stateshift:switch_to Ajar
func (Door) Open(force bool) Door { return Door{} }

//stateshift:require Ajar
//stateshift:switch_to Shut
func (d Door) Close(bool) Door { return Door{} }
`)
	code := string(res.Code)
	assert.Contains(t, code, "func DoorOpen(_ Door[DoorShut], force bool) Door[DoorAjar] {")
	assert.Contains(t, code, "func DoorClose(d Door[DoorAjar], _ bool) Door[DoorShut] {")
	require.NoError(t, typeCheck(t, "door", res.Code, ""))
}

func TestExpandOptions(t *testing.T) {
	res := expand(t, `//go:build stateshift && linux

package door

//stateshift:type default=Closed
type Door struct{}
`, WithTag("stateshift"), WithStateField("_marks"), WithHeader("// Generated. DO NOT EDIT."))
	code := string(res.Code)
	assert.True(t, strings.HasPrefix(code, "// Generated. DO NOT EDIT.\n"))
	assert.Contains(t, code, "//go:build !stateshift && linux\n")
	assert.Contains(t, code, "_marks [0]func() State1")
}

func TestExpandDiagnostics(t *testing.T) {
	const head = `package door

//stateshift:type slots=2 default=Closed
//stateshift:states Closed, Opened, Locked
type Door struct{}

//stateshift:require Closed, _
//stateshift:switch_to Opened, _
func (d Door) Open() Door { return Door{} }
`
	tests := []struct {
		name  string
		src   string
		is    func(error) bool
		gone  string // declaration absent from the KeepGoing output
		typed bool   // whether the KeepGoing output type-checks
	}{
		{
			name: "arity",
			src: head + `
//stateshift:require Opened
func (d Door) Lock() Door { return Door{} }
`,
			is:    stateshift.IsArityError,
			gone:  "Lock(",
			typed: true,
		},
		{
			name: "unknown marker",
			src: head + `
//stateshift:require Flying, _
func (d Door) Land() Door { return Door{} }
`,
			is:    stateshift.IsMarkerError,
			gone:  "Land(",
			typed: true,
		},
		{
			name: "unknown directive",
			src: head + `
//stateshift:requires Opened, _
func (d Door) Lock() Door { return Door{} }
`,
			is:    stateshift.IsAnnotationError,
			gone:  "Lock(",
			typed: true,
		},
		{
			name: "malformed vector",
			src: head + `
//stateshift:require Opened,, _
func (d Door) Lock() Door { return Door{} }
`,
			is:    stateshift.IsAnnotationError,
			gone:  "Lock(",
			typed: true,
		},
		{
			name: "tracked parameter",
			src: head + `
func (d Door) Swap(o Door) Door { return o }
`,
			is:    stateshift.IsShapeError,
			gone:  "Swap(",
			typed: true,
		},
		{
			name: "switch_to without result",
			src: head + `
//stateshift:switch_to Locked, _
func (d Door) Lock() {}
`,
			is:    stateshift.IsShapeError,
			gone:  "Lock(",
			typed: true,
		},
		{
			name: "reference outside operations",
			src: head + `
var front Door
`,
			is:    stateshift.IsShapeError,
			gone:  "front",
			typed: true,
		},
		{
			name: "generated name collision",
			src: head + `
func DoorOpen() {}
`,
			is:    stateshift.IsShapeError,
			gone:  "func DoorOpen(d",
			typed: true,
		},
		{
			name: "marker collides with declaration",
			src: head + `
type DoorLocked int
`,
			is:    stateshift.IsShapeError,
			gone:  "DoorState",
			typed: true,
		},
		{
			name: "untracked struct",
			src: head + `
//stateshift:type default=On
type Mode int
`,
			is:    stateshift.IsShapeError,
			gone:  "Mode",
			typed: true,
		},
		{
			name: "missing default",
			src: head + `
//stateshift:type slots=2
type Lamp struct{}
`,
			is:    stateshift.IsAnnotationError,
			gone:  "Lamp",
			typed: true,
		},
		{
			name: "reserved field",
			src: head + `
//stateshift:type default=Off
type Lamp struct{ _state int }
`,
			is:    stateshift.IsShapeError,
			gone:  "Lamp",
			typed: true,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg, err := NewConfig()
			require.NoError(t, err)
			res, err := Expand("door.go", []byte(tt.src), cfg)
			require.Error(t, err)
			assert.True(t, tt.is(err), "unexpected error kind: %v", err)
			require.NotNil(t, res)
			assert.Nil(t, res.Code)
			assert.NotEmpty(t, res.Diagnostics)
			assert.Contains(t, err.Error(), "door.go:")

			cfg.KeepGoing = true
			res, err = Expand("door.go", []byte(tt.src), cfg)
			require.Error(t, err)
			require.NotNil(t, res.Code)
			assert.NotContains(t, string(res.Code), tt.gone)
			if tt.typed {
				assert.NoError(t, typeCheck(t, "door", res.Code, ""))
			}
		})
	}
}

func TestExpandIsolatesFailures(t *testing.T) {
	src := `package multi

//stateshift:type default=Closed
type Door struct{}

//stateshift:require Closed, _
func (d Door) Broken() Door { return d }

//stateshift:switch_to Opened
func (d Door) Open() Door { return Door{} }

//stateshift:type slots=0 default=Off
type Lamp struct{}

func (l Lamp) On() Lamp { return l }

//stateshift:type default=Idle
type Engine struct{}

//stateshift:require Running
//stateshift:switch_to Idle
func (e Engine) Stop() Engine { return Engine{} }
`
	cfg, err := NewConfig(WithKeepGoing(true))
	require.NoError(t, err)
	res, err := Expand("multi.go", []byte(src), cfg)
	require.Error(t, err)
	assert.True(t, stateshift.IsArityError(err))
	assert.True(t, stateshift.IsAnnotationError(err))
	assert.Len(t, res.Diagnostics, 2)
	assert.Equal(t, []string{"Door", "Engine"}, res.Types)
	assert.Equal(t, 2, res.Operations)

	code := string(res.Code)
	assert.Contains(t, code, "func (d Door[A]) Open() Door[DoorOpened] {")
	assert.Contains(t, code, "func EngineStop(e Engine[EngineRunning]) Engine[EngineIdle] {")
	assert.NotContains(t, code, "Broken")
	assert.NotContains(t, code, "Lamp")
	require.NoError(t, typeCheck(t, "multi", res.Code, ""))
}

func TestExpandNamespacing(t *testing.T) {
	res := expand(t, `package pair

//stateshift:type default=Initial
type Left struct{}

//stateshift:require Initial
//stateshift:switch_to Done
func (l Left) Finish() Left { return Left{} }

//stateshift:type default=Initial
type Right struct{}

//stateshift:require Initial
//stateshift:switch_to Done
func (r Right) Finish() Right { return Right{} }
`)
	code := string(res.Code)
	assert.Equal(t, []string{"Left", "Right"}, res.Types)
	for _, s := range []string{
		"type LeftInitial struct{}",
		"type RightInitial struct{}",
		"type sealedLeft interface",
		"type sealedRight interface",
		"func LeftFinish(l Left[LeftInitial]) Left[LeftDone] {",
		"func RightFinish(r Right[RightInitial]) Right[RightDone] {",
	} {
		assert.Contains(t, code, s)
	}

	require.NoError(t, typeCheck(t, "pair", res.Code, `package pair

var _ = LeftFinish(Left[LeftInitial]{})
`))
	assert.Error(t, typeCheck(t, "pair", res.Code, `package pair

var _ Left[RightInitial]
`))
	assert.Error(t, typeCheck(t, "pair", res.Code, `package pair

var _ = RightFinish(Left[LeftInitial]{})
`))
}

func TestExpandParseError(t *testing.T) {
	res, err := Expand("bad.go", []byte("package bad\n\nfunc {"), nil)
	require.Error(t, err)
	assert.Nil(t, res)
	assert.True(t, stateshift.IsGenerationError(err))
	assert.ErrorIs(t, err, stateshift.ErrGenerationFailed)
}

func TestExpandUntouched(t *testing.T) {
	res := expand(t, `package plain

// Plain has no directives.
type Plain struct{ n int }

func (p Plain) N() int { return p.n }
`)
	assert.Empty(t, res.Types)
	assert.Zero(t, res.Operations)
	assert.Contains(t, string(res.Code), "func (p Plain) N() int { return p.n }")
	require.NoError(t, typeCheck(t, "plain", res.Code, ""))
}

func TestExpandPlaceholderAvoidsNames(t *testing.T) {
	res := expand(t, `package door

//stateshift:type slots=2 default=Shut
type Door struct{}

//stateshift:require _, Shut
//stateshift:switch_to _, Ajar
func (d Door) Open(A int) Door { return Door{} }
`)
	assert.Contains(t, string(res.Code), "func DoorOpen[A1 DoorState](d Door[A1, DoorShut], A int) Door[A1, DoorAjar] {")
	require.NoError(t, typeCheck(t, "door", res.Code, ""))
}

const taskSrc = `package task

//stateshift:type default=Initial
type Task struct{ steps int }

//stateshift:require Initial
//stateshift:switch_to Prepared
func (t Task) Prepare() Task { return Task{steps: t.steps + 1} }

//stateshift:require Prepared
//stateshift:switch_to Prepared
func (t Task) Again() Task { return Task{steps: t.steps + 1} }

//stateshift:require Prepared
//stateshift:switch_to Done
func (t *Task) Finish() *Task { return &Task{steps: t.steps + 1} }

// Steps works in every state.
func (t Task) Steps() int { return t.steps }

//stateshift:require Initial
//stateshift:switch_to Done
func (t Task) Quick() *Task {
	p := t.Prepare()
	if p.Steps() > 1 {
		return nil
	}
	return p.Finish()
}

//stateshift:require Initial
//stateshift:switch_to Prepared
func (t Task) Twice() Task {
	return t.Prepare().Again()
}
`

func TestExpandSiblingCalls(t *testing.T) {
	res := expand(t, taskSrc)
	code := string(res.Code)

	assert.Contains(t, code, "func TaskQuick(t Task[TaskInitial]) *Task[TaskDone] {\n\tp := TaskPrepare(t)\n\tif p.Steps() > 1 {")
	assert.Contains(t, code, "\treturn TaskFinish(&p)\n}")
	assert.Contains(t, code, "func TaskTwice(t Task[TaskInitial]) Task[TaskPrepared] {\n\treturn TaskAgain(TaskPrepare(t))\n}")
	assert.NotContains(t, code, ".Prepare()")
	require.NoError(t, typeCheck(t, "task", res.Code, `package task

func run() int { return TaskQuick(Task[TaskInitial]{}).Steps() + TaskTwice(Task[TaskInitial]{}).Steps() }
`))

	// Calls out of order inside an operation fail to type-check like any other.
	res = expand(t, taskSrc+`
//stateshift:require Initial
//stateshift:switch_to Done
func (t Task) Skip() *Task { return t.Finish() }
`)
	assert.Contains(t, string(res.Code), "TaskFinish(&t)")
	assert.Error(t, typeCheck(t, "task", res.Code, ""))
}
