package classify

import (
	"fmt"
	"slices"
	"strings"
)

// Predicate decides whether a normalized signature satisfies a rule.
type Predicate interface {
	Matches(signature string) bool
	String() string
}

// Exact matches one fully deterministic message.
type Exact string

func (p Exact) Matches(signature string) bool { return signature == string(p) }
func (p Exact) String() string                { return fmt.Sprintf("exact(%q)", string(p)) }

// OneOf matches any member of a small fixed set of messages.
type OneOf []string

func (p OneOf) Matches(signature string) bool { return slices.Contains(p, signature) }
func (p OneOf) String() string                { return fmt.Sprintf("one-of(%d literals)", len(p)) }

// Contains matches messages embedding a fixed fragment anywhere.
type Contains string

func (p Contains) Matches(signature string) bool { return strings.Contains(signature, string(p)) }
func (p Contains) String() string                { return fmt.Sprintf("contains(%q)", string(p)) }

// HasPrefix matches messages that start with a fixed literal and end with a
// generated suffix, such as a dynamic macro-variable name.
type HasPrefix string

func (p HasPrefix) Matches(signature string) bool { return strings.HasPrefix(signature, string(p)) }
func (p HasPrefix) String() string                { return fmt.Sprintf("prefix(%q)", string(p)) }

// Rule pairs a predicate with the category it assigns.
type Rule struct {
	Name     string
	Match    Predicate
	Category Category
}

// DefaultRules is the agreed root-cause table. Order is significant: rules are
// evaluated top to bottom and the first match wins.
var DefaultRules = []Rule{
	{
		Name:     "macro_nesting_exceeded",
		Match:    Exact("ERROR: Maximum level of nesting of macro functions exceeded."),
		Category: CategoryD,
	},
	{
		Name: "local_global_scope_collision",
		Match: OneOf{
			"ERROR: Attempt to %GLOBAL a name (_N) which exists in a local environment.",
			"ERROR: %EVAL function has no expression to evaluate, or %IF statement has no condition.",
			"ERROR: The %TO value of the %DO _I loop is invalid.",
			"ERROR: The macro _PRED_RESOLVE_GEN_ARGS will stop executing.",
		},
		Category: CategoryB,
	},
	{
		Name: "unbalanced_do_block",
		Match: OneOf{
			"ERROR: Expected %DO not found.",
			"ERROR: Skipping to next %END statement.",
		},
		Category: CategoryE,
	},
	{
		Name:     "recursive_macro_variable",
		Match:    Contains("recursive reference to the macro variable X"),
		Category: CategoryA,
	},
	{
		Name:     "registry_add_stopped",
		Match:    Exact("ERROR: The macro _PRED_REGISTRY_ADD will stop executing."),
		Category: CategoryC,
	},
	{
		Name:     "let_missing_variable",
		Match:    Exact("ERROR: Expecting a variable name after %LET."),
		Category: CategoryC,
	},
	{
		Name:     "dynamic_registry_name",
		Match:    HasPrefix("ERROR: Symbolic variable name _PIPR_FUNCTION_"),
		Category: CategoryC,
	},
	{
		Name:     "invalid_dynamic_registry_name",
		Match:    HasPrefix("ERROR: Invalid symbolic variable name _PIPR_FUNCTION_"),
		Category: CategoryC,
	},
}
