package syntax

// Kind is the closed set of Python constructs the analyzer distinguishes.
// Every tree-sitter node type maps to exactly one Kind; types without a
// dedicated entry become KindUnknown.
type Kind uint8

const (
	KindUnknown Kind = iota

	// Literals and displays
	KindLiteral
	KindCollection
	KindPair

	// Variables
	KindName
	KindStarred

	// Operators
	KindUnaryOp
	KindBinaryOp
	KindBoolOp
	KindNotOp
	KindCompare
	KindConditional

	// Access paths
	KindAttribute
	KindCall
	KindArguments
	KindKeywordArgument
	KindSubscript
	KindSlice
	KindParenthesized

	// Comprehensions and generators
	KindComprehension
	KindGenerator
	KindForInClause
	KindIfClause
	KindYield
	KindAwait
	KindNamedExpr

	// Statements
	KindModule
	KindBlock
	KindExprStatement
	KindAssign
	KindAugAssign
	KindDelete
	KindPass
	KindReturn
	KindGlobal
	KindNonlocal

	// Exception handling
	KindRaise
	KindAssert
	KindTry
	KindExcept
	KindFinally

	// Imports
	KindImport
	KindImportFrom
	KindDottedName
	KindAliasedImport
	KindRelativeImport
	KindWildcardImport

	// Control flow
	KindIf
	KindElif
	KindElse
	KindFor
	KindWhile
	KindBreak
	KindContinue
	KindWith
	KindWithClause
	KindWithItem
	KindAsPattern
	KindAsTarget

	// Functions and classes
	KindFunctionDef
	KindClassDef
	KindDecorated
	KindDecorator
	KindLambda
	KindParameters
	KindParameter
	KindType

	// Destructuring
	KindPatternList

	KindComment
	KindError

	kindCount
)

// NumKinds is the number of distinct Kind values, for dispatch tables.
const NumKinds = int(kindCount)

var kindNames = [kindCount]string{
	KindUnknown:         "unknown",
	KindLiteral:         "literal",
	KindCollection:      "collection",
	KindPair:            "pair",
	KindName:            "name",
	KindStarred:         "starred",
	KindUnaryOp:         "unary_op",
	KindBinaryOp:        "binary_op",
	KindBoolOp:          "bool_op",
	KindNotOp:           "not_op",
	KindCompare:         "compare",
	KindConditional:     "conditional",
	KindAttribute:       "attribute",
	KindCall:            "call",
	KindArguments:       "arguments",
	KindKeywordArgument: "keyword_argument",
	KindSubscript:       "subscript",
	KindSlice:           "slice",
	KindParenthesized:   "parenthesized",
	KindComprehension:   "comprehension",
	KindGenerator:       "generator",
	KindForInClause:     "for_in_clause",
	KindIfClause:        "if_clause",
	KindYield:           "yield",
	KindAwait:           "await",
	KindNamedExpr:       "named_expr",
	KindModule:          "module",
	KindBlock:           "block",
	KindExprStatement:   "expr_statement",
	KindAssign:          "assign",
	KindAugAssign:       "aug_assign",
	KindDelete:          "delete",
	KindPass:            "pass",
	KindReturn:          "return",
	KindGlobal:          "global",
	KindNonlocal:        "nonlocal",
	KindRaise:           "raise",
	KindAssert:          "assert",
	KindTry:             "try",
	KindExcept:          "except",
	KindFinally:         "finally",
	KindImport:          "import",
	KindImportFrom:      "import_from",
	KindDottedName:      "dotted_name",
	KindAliasedImport:   "aliased_import",
	KindRelativeImport:  "relative_import",
	KindWildcardImport:  "wildcard_import",
	KindIf:              "if",
	KindElif:            "elif",
	KindElse:            "else",
	KindFor:             "for",
	KindWhile:           "while",
	KindBreak:           "break",
	KindContinue:        "continue",
	KindWith:            "with",
	KindWithClause:      "with_clause",
	KindWithItem:        "with_item",
	KindAsPattern:       "as_pattern",
	KindAsTarget:        "as_target",
	KindFunctionDef:     "function_def",
	KindClassDef:        "class_def",
	KindDecorated:       "decorated",
	KindDecorator:       "decorator",
	KindLambda:          "lambda",
	KindParameters:      "parameters",
	KindParameter:       "parameter",
	KindType:            "type",
	KindPatternList:     "pattern_list",
	KindComment:         "comment",
	KindError:           "error",
}

func (k Kind) String() string {
	if k < kindCount {
		return kindNames[k]
	}
	return "unknown"
}

// grammarKinds maps tree-sitter-python node types to Kinds.
var grammarKinds = map[string]Kind{
	"string":              KindLiteral,
	"concatenated_string": KindLiteral,
	"integer":             KindLiteral,
	"float":               KindLiteral,
	"true":                KindLiteral,
	"false":               KindLiteral,
	"none":                KindLiteral,
	"ellipsis":            KindLiteral,

	"list":       KindCollection,
	"tuple":      KindCollection,
	"set":        KindCollection,
	"dictionary": KindCollection,
	"pair":       KindPair,

	"identifier":               KindName,
	"list_splat":               KindStarred,
	"dictionary_splat":         KindStarred,
	"list_splat_pattern":       KindStarred,
	"dictionary_splat_pattern": KindStarred,

	"unary_operator":         KindUnaryOp,
	"binary_operator":        KindBinaryOp,
	"boolean_operator":       KindBoolOp,
	"not_operator":           KindNotOp,
	"comparison_operator":    KindCompare,
	"conditional_expression": KindConditional,

	"attribute":                KindAttribute,
	"call":                     KindCall,
	"argument_list":            KindArguments,
	"keyword_argument":         KindKeywordArgument,
	"subscript":                KindSubscript,
	"slice":                    KindSlice,
	"parenthesized_expression": KindParenthesized,

	"list_comprehension":       KindComprehension,
	"set_comprehension":        KindComprehension,
	"dictionary_comprehension": KindComprehension,
	"generator_expression":     KindGenerator,
	"for_in_clause":            KindForInClause,
	"if_clause":                KindIfClause,
	"yield":                    KindYield,
	"await":                    KindAwait,
	"named_expression":         KindNamedExpr,

	"module":               KindModule,
	"block":                KindBlock,
	"expression_statement": KindExprStatement,
	"assignment":           KindAssign,
	"augmented_assignment": KindAugAssign,
	"delete_statement":     KindDelete,
	"pass_statement":       KindPass,
	"return_statement":     KindReturn,
	"global_statement":     KindGlobal,
	"nonlocal_statement":   KindNonlocal,

	"raise_statement":     KindRaise,
	"assert_statement":    KindAssert,
	"try_statement":       KindTry,
	"except_clause":       KindExcept,
	"except_group_clause": KindExcept,
	"finally_clause":      KindFinally,

	"import_statement":        KindImport,
	"import_from_statement":   KindImportFrom,
	"future_import_statement": KindImportFrom,
	"dotted_name":             KindDottedName,
	"aliased_import":          KindAliasedImport,
	"relative_import":         KindRelativeImport,
	"wildcard_import":         KindWildcardImport,

	"if_statement":       KindIf,
	"elif_clause":        KindElif,
	"else_clause":        KindElse,
	"for_statement":      KindFor,
	"while_statement":    KindWhile,
	"break_statement":    KindBreak,
	"continue_statement": KindContinue,
	"with_statement":     KindWith,
	"with_clause":        KindWithClause,
	"with_item":          KindWithItem,
	"as_pattern":         KindAsPattern,
	"as_pattern_target":  KindAsTarget,

	"function_definition":     KindFunctionDef,
	"class_definition":        KindClassDef,
	"decorated_definition":    KindDecorated,
	"decorator":               KindDecorator,
	"lambda":                  KindLambda,
	"parameters":              KindParameters,
	"lambda_parameters":       KindParameters,
	"typed_parameter":         KindParameter,
	"default_parameter":       KindParameter,
	"typed_default_parameter": KindParameter,
	"type":                    KindType,

	"pattern_list":    KindPatternList,
	"tuple_pattern":   KindPatternList,
	"list_pattern":    KindPatternList,
	"expression_list": KindPatternList,

	"comment": KindComment,
	"ERROR":   KindError,
}

// KindOf returns the Kind for a tree-sitter-python node type.
func KindOf(grammarType string) Kind {
	if k, ok := grammarKinds[grammarType]; ok {
		return k
	}
	return KindUnknown
}

// Category groups kinds into the coarse families used in reports.
func (k Kind) Category() string {
	switch k {
	case KindLiteral, KindCollection, KindPair:
		return "Literals"
	case KindName, KindStarred:
		return "Variables"
	case KindUnaryOp:
		return "Unary Operations"
	case KindBinaryOp:
		return "Binary Operations"
	case KindBoolOp, KindNotOp:
		return "Boolean Operations"
	case KindCompare:
		return "Comparisons"
	case KindAttribute, KindCall, KindArguments, KindKeywordArgument, KindConditional, KindParenthesized:
		return "Miscellaneous Expressions"
	case KindSubscript, KindSlice:
		return "Subscripts"
	case KindComprehension, KindForInClause, KindIfClause:
		return "Comprehensions"
	case KindGenerator, KindYield, KindNamedExpr:
		return "Generators"
	case KindExprStatement, KindAssign, KindAugAssign, KindDelete, KindPass:
		return "Statements"
	case KindRaise, KindAssert, KindTry, KindExcept, KindFinally:
		return "Exception Handling"
	case KindImport, KindImportFrom, KindDottedName, KindAliasedImport, KindRelativeImport, KindWildcardImport:
		return "Imports"
	case KindIf, KindElif, KindElse, KindFor, KindWhile, KindBreak, KindContinue,
		KindWith, KindWithClause, KindWithItem, KindAsPattern, KindAsTarget:
		return "Control Flow"
	case KindFunctionDef, KindClassDef, KindDecorated, KindDecorator, KindLambda,
		KindParameters, KindParameter, KindReturn, KindGlobal, KindNonlocal:
		return "Functions/Classes"
	case KindAwait:
		return "Asynchronous Operations"
	}
	return "Other"
}

// unknownCategories places grammar types that have no Kind of their own.
var unknownCategories = map[string]string{
	"match_statement":      "Control Flow",
	"case_clause":          "Control Flow",
	"case_pattern":         "Control Flow",
	"print_statement":      "Statements",
	"exec_statement":       "Statements",
	"type_alias_statement": "Statements",
	"string_start":         "Literals",
	"string_content":       "Literals",
	"string_end":           "Literals",
	"escape_sequence":      "Literals",
	"interpolation":        "Literals",
	"format_specifier":     "Literals",
}

// CategoryOf returns the report category of a tree-sitter-python node type,
// falling back to the grammar type table for types without a Kind.
func CategoryOf(grammarType string) string {
	if k := KindOf(grammarType); k != KindUnknown {
		return k.Category()
	}
	if c, ok := unknownCategories[grammarType]; ok {
		return c
	}
	return "Other"
}
