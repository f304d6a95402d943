// Package query implements the snapshot query language. A query is a
// boolean expression over the fields of an annotated snapshot record,
// compiled once and evaluated in memory against every candidate.
//
// Grammar
//
// --- PARSER RULES ---
//
// expression  : term ( "or" term )* ;
// term        : factor ( "and" factor )* ;
//
// factor      : equality
//             | "(" expression ")" ;
//
// // Regex gets its own distinct rule based on the operator used
// equality    : IDENTIFIER ( "=" | "!=" | "<" | "<=" | ">" | ">=" ) value
//             | IDENTIFIER ( "~" | "!~" ) REGEX_LITERAL ;
//
// value       : STRING | QUANTITY | BOOLEAN ;
//
// --- LEXER RULES ---
//
// IDENTIFIER    : [a-zA-Z_.]+ ;
//
// // AWK-style regex: /pattern/
// // Matches anything between two forward slashes
// REGEX_LITERAL : '/' ( '\\/' | . )*? '/' ;
//
// STRING        : "'" (.*?) "'" | "\"" (.*?) "\"" ;
// BOOLEAN       : "true" | "false" ;
//
// // Numeric value with optional unit suffix. The baseline unit is
// // days; 'w' multiplies by seven.
// QUANTITY      : [0-9]+(\.[0-9]+)? ( 'd' | 'D' | 'w' | 'W' )? ;
//
// Queryable fields:
//
//	vm, vm_name          VM name (string)
//	vm_id                VM identifier (string)
//	id                   snapshot identifier (string)
//	name, snapshot       snapshot name (string)
//	description          snapshot description (string)
//	hostname             endpoint hostname (string)
//	creator, created_by  creator extracted from the description (string)
//	kind                 chain position (string)
//	chain_protected      snapshot has dependents (boolean)
//	memory               snapshot includes memory state (boolean)
//	age                  age in business days (quantity)
//	age_calendar         age in calendar days (quantity)
//	created              creation date, compared against 'YYYY-MM-DD'
//
// Examples:
//
//	vm ~ /^prod-/ and age > 2w
//	creator = 'alice' or chain_protected = true
//	kind = 'independent' and created < '2026-01-01'
package query
