// internal/sui/txplan/txplan.go

// Package txplan describes a Sui programmable transaction as an ordered list
// of commands. The plan is handed to a wallet for serialisation and signing.
package txplan

import (
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strconv"

	"github.com/rovshanmuradov/sui-lending/internal/amount"
)

var (
	ErrInvalidTarget  = errors.New("invalid move call target")
	ErrInvalidAddress = errors.New("invalid address")
	ErrInvalidResult  = errors.New("result refers to an unknown command")
	ErrEmptyPlan      = errors.New("transaction plan has no commands")
)

var (
	targetRe  = regexp.MustCompile(`^0x[0-9a-fA-F]{1,64}::[A-Za-z_][A-Za-z0-9_]*::[A-Za-z_][A-Za-z0-9_]*$`)
	addressRe = regexp.MustCompile(`^0x[0-9a-fA-F]{1,64}$`)
)

type ArgKind string

const (
	ArgGas          ArgKind = "gas"
	ArgObject       ArgKind = "object"
	ArgPureU64      ArgKind = "u64"
	ArgPureAddress  ArgKind = "address"
	ArgResult       ArgKind = "result"
	ArgNestedResult ArgKind = "nested_result"
)

// Argument is an input to a command.
type Argument struct {
	Kind    ArgKind `json:"kind"`
	Value   string  `json:"value,omitempty"`
	Command int     `json:"command,omitempty"`
	Index   int     `json:"index,omitempty"`
}

func Gas() Argument                 { return Argument{Kind: ArgGas} }
func Object(id string) Argument     { return Argument{Kind: ArgObject, Value: id} }
func PureU64(v uint64) Argument     { return Argument{Kind: ArgPureU64, Value: strconv.FormatUint(v, 10)} }
func PureAddress(a string) Argument { return Argument{Kind: ArgPureAddress, Value: a} }
func Result(cmd int) Argument       { return Argument{Kind: ArgResult, Command: cmd} }

// NestedResult selects element idx of a command returning several values.
func NestedResult(cmd, idx int) Argument {
	return Argument{Kind: ArgNestedResult, Command: cmd, Index: idx}
}

func (a Argument) String() string {
	switch a.Kind {
	case ArgGas:
		return "Gas"
	case ArgResult:
		return fmt.Sprintf("Result(%d)", a.Command)
	case ArgNestedResult:
		return fmt.Sprintf("NestedResult(%d,%d)", a.Command, a.Index)
	default:
		return fmt.Sprintf("%s(%s)", a.Kind, a.Value)
	}
}

type CommandKind string

const (
	CmdSplitCoins CommandKind = "SplitCoins"
	CmdMergeCoins CommandKind = "MergeCoins"
	CmdMoveCall   CommandKind = "MoveCall"
)

// Command is one step of the programmable transaction.
type Command struct {
	Kind          CommandKind `json:"kind"`
	Target        string      `json:"target,omitempty"`
	TypeArguments []string    `json:"type_arguments,omitempty"`
	Arguments     []Argument  `json:"arguments,omitempty"`
	Coin          *Argument   `json:"coin,omitempty"`
	Amounts       []Argument  `json:"amounts,omitempty"`
	Sources       []Argument  `json:"sources,omitempty"`
}

// Plan is a complete programmable transaction.
type Plan struct {
	Sender   string    `json:"sender"`
	Commands []Command `json:"commands"`
}

// JSON encodes the plan for the wallet.
func (p *Plan) JSON() ([]byte, error) {
	return json.Marshal(p)
}

// Targets lists the Move functions the plan calls, in order.
func (p *Plan) Targets() []string {
	var out []string
	for _, c := range p.Commands {
		if c.Kind == CmdMoveCall {
			out = append(out, c.Target)
		}
	}
	return out
}

// Builder accumulates commands; the first error sticks and is returned by Build.
type Builder struct {
	plan Plan
	err  error
}

func NewBuilder(sender string) *Builder {
	b := &Builder{plan: Plan{Sender: sender}}
	if !addressRe.MatchString(sender) {
		b.err = fmt.Errorf("%w: sender %q", ErrInvalidAddress, sender)
	}
	return b
}

func (b *Builder) fail(err error) {
	if b.err == nil {
		b.err = err
	}
}

func (b *Builder) checkArgs(args ...Argument) {
	for _, a := range args {
		switch a.Kind {
		case ArgResult, ArgNestedResult:
			if a.Command < 0 || a.Command >= len(b.plan.Commands) {
				b.fail(fmt.Errorf("%w: %s", ErrInvalidResult, a))
			}
		case ArgObject, ArgPureAddress:
			if !addressRe.MatchString(a.Value) {
				b.fail(fmt.Errorf("%w: %s", ErrInvalidAddress, a))
			}
		}
	}
}

func (b *Builder) add(c Command) int {
	b.plan.Commands = append(b.plan.Commands, c)
	return len(b.plan.Commands) - 1
}

// Amount converts a token amount into a pure u64 argument.
func (b *Builder) Amount(a amount.TokenAmount) Argument {
	v, err := a.Uint64()
	if err != nil {
		b.fail(fmt.Errorf("amount %s: %w", a, err))
	}
	return PureU64(v)
}

// SplitCoin splits amt off coin and returns the new coin.
func (b *Builder) SplitCoin(coin Argument, amt amount.TokenAmount) Argument {
	b.checkArgs(coin)
	size := b.Amount(amt)
	idx := b.add(Command{Kind: CmdSplitCoins, Coin: &coin, Amounts: []Argument{size}})
	return NestedResult(idx, 0)
}

// SplitGas splits amt off the gas coin.
func (b *Builder) SplitGas(amt amount.TokenAmount) Argument {
	return b.SplitCoin(Gas(), amt)
}

// Merge merges sources into dest. Nothing is added without sources.
func (b *Builder) Merge(dest Argument, sources ...Argument) {
	if len(sources) == 0 {
		return
	}
	b.checkArgs(dest)
	b.checkArgs(sources...)
	b.add(Command{Kind: CmdMergeCoins, Coin: &dest, Sources: sources})
}

// MoveCall calls pkg::module::function and returns its result.
func (b *Builder) MoveCall(target string, typeArgs []string, args ...Argument) Argument {
	if !targetRe.MatchString(target) {
		b.fail(fmt.Errorf("%w: %q", ErrInvalidTarget, target))
	}
	b.checkArgs(args...)
	idx := b.add(Command{Kind: CmdMoveCall, Target: target, TypeArguments: typeArgs, Arguments: args})
	return Result(idx)
}

// Build returns the plan or the first construction error.
func (b *Builder) Build() (*Plan, error) {
	if b.err != nil {
		return nil, b.err
	}
	if len(b.plan.Commands) == 0 {
		return nil, ErrEmptyPlan
	}
	plan := b.plan
	plan.Commands = append([]Command(nil), b.plan.Commands...)
	return &plan, nil
}

// Target joins package, module and function.
func Target(pkg, module, function string) string {
	return pkg + "::" + module + "::" + function
}
