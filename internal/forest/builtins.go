package forest

// builtinNames are Python's built-in functions. A path whose base is one of
// these and is not shadowed by an alias is counted as a builtin use rather
// than an unresolved name.
var builtinNames = map[string]struct{}{
	"abs": {}, "all": {}, "any": {}, "ascii": {}, "bin": {}, "bool": {},
	"bytearray": {}, "bytes": {}, "callable": {}, "chr": {}, "classmethod": {},
	"compile": {}, "complex": {}, "delattr": {}, "dict": {}, "dir": {},
	"divmod": {}, "enumerate": {}, "eval": {}, "exec": {}, "filter": {},
	"float": {}, "format": {}, "frozenset": {}, "getattr": {}, "globals": {},
	"hasattr": {}, "hash": {}, "help": {}, "hex": {}, "id": {}, "input": {},
	"int": {}, "isinstance": {}, "issubclass": {}, "iter": {}, "len": {},
	"list": {}, "locals": {}, "map": {}, "max": {}, "memoryview": {}, "min": {},
	"next": {}, "object": {}, "oct": {}, "open": {}, "ord": {}, "pow": {},
	"print": {}, "property": {}, "range": {}, "repr": {}, "reversed": {},
	"round": {}, "set": {}, "setattr": {}, "slice": {}, "sorted": {},
	"staticmethod": {}, "str": {}, "sum": {}, "super": {}, "tuple": {},
	"type": {}, "vars": {}, "zip": {}, "__import__": {},
}

// IsBuiltin reports whether name is a Python built-in function.
func IsBuiltin(name string) bool {
	_, ok := builtinNames[name]
	return ok
}
