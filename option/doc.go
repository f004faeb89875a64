/*
Package option parses line-oriented configuration files into an ordered list of
option records.

Format

One entry per line. Leading and trailing whitespace is insignificant.

	# comment line, ignored
	DelayOff                       # option without value, a feature flag
	max_users = 30                 # option with a primary value
	option = Blue, light, shiny    # primary value "Blue", attributes ["light" "shiny"]

A line whose first non-whitespace character is '#' is a comment. Blank lines are
ignored. The option name is everything before the first '=' (or the whole line if
there is no '='). The value text after '=' is split on a caller supplied delimiter:
the first token is the primary value, the remaining tokens are attributes, each
trimmed of whitespace. Empty tokens produced by consecutive or trailing delimiters
are kept as empty strings so attribute positions stay stable.

A line with nothing before '=' (e.g. "=value") is malformed and skipped. Parsing
never fails because of file content; the only error is an *IOError returned when
the source cannot be read, including when it is not valid UTF-8 text.

Records are returned in source order and duplicates are never merged.
*/
package option
