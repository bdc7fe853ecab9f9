package mcpserver

// Tool descriptions with interpretation guidance for LLMs.
// Each description explains what the tool does, when to use it,
// how to interpret results, and key caveats.

func describeDeadCode() string {
	return `Finds definitions unreachable from any entry point by building a cross-file call graph.

USE WHEN:
- Cleaning up a codebase before a refactor or a release
- Verifying a feature removal left no orphaned helpers behind
- Auditing how much of a module is actually exercised
- Shrinking review surface by deleting code nobody calls

INTERPRETING RESULTS:
- Confidence high: every reference to the symbol resolved cleanly; removal is safe to investigate
- Confidence medium: inheritance or a same-named symbol elsewhere makes the result approximate
- Confidence low: dynamic constructs or extraction warnings touch this finding; verify by hand
- reason on each finding explains why it was excluded and what lowered its confidence
- warnings list files that failed extraction and entry patterns that matched nothing

METRICS RETURNED:
- dead_code: findings with name, kind, file, line, confidence, reason
- summary: totals, reachable count, entry point count, per-file and per-confidence breakdowns
- warnings: non-fatal problems encountered during the run

Note: reflection, FFI, and callers outside the scanned set can make reachable code look dead.`
}

func describeEntryPoints() string {
	return `Lists the entry points a dead code analysis would start traversal from.

USE WHEN:
- Debugging why live code shows up as dead (usually a missing entry point)
- Checking what a glob like cmd/** actually matches before a full analysis
- Documenting the executable surface of a codebase

INTERPRETING RESULTS:
- Each entry names a traversal root: name, kind, file, line
- Entries of kind (module) root a file's module scope rather than a single definition
- An empty list means the analysis would mark everything dead; add entry or entry_functions
- warnings flag patterns that matched nothing and files that failed extraction

METRICS RETURNED:
- entry_points: resolved roots in deterministic order
- count: number of roots
- warnings: non-fatal problems encountered while resolving`
}
