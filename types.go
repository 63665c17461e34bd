package apiforest

import (
	"github.com/jward/apiforest/internal/forest"
	"github.com/jward/apiforest/internal/store"
)

// Public type aliases for internal types used in the Engine and QueryBuilder
// APIs. External consumers use these names; no conversion is needed.

type Store = store.Store
type File = store.File
type FileStats = store.FileStats
type Run = store.Run
type UsageRow = store.UsageNode
type NodeAlias = store.NodeAlias
type ModuleSummary = store.ModuleSummary
type PathUsage = store.PathUsage

type Forest = forest.Forest
type UsageNode = forest.UsageNode
type Result = forest.Result
type Stats = forest.Stats
type Context = forest.Context
type NodeKind = forest.NodeKind

// Node kinds, re-exported for walking forests.
const (
	KindModule    = forest.KindModule
	KindInstance  = forest.KindInstance
	KindCall      = forest.KindCall
	KindSubscript = forest.KindSubscript
)
