package guacdb

import "guacmigrate/internal/connection"

// FoldOptions tunes Fold.
type FoldOptions struct {
	// LegacyShape reproduces the historical export layout in which the
	// "protocol" field carried the group path and "group" carried the
	// protocol. Off by default.
	LegacyShape bool

	// Namer, when set, disambiguates names that repeat across the batch
	// (Guacamole only enforces uniqueness per group). Nil keeps names as
	// stored.
	Namer *connection.Namer
}

// Fold collapses rows into one record per connection id, in the order ids
// are first seen. A row with a NULL parameter name contributes no parameter;
// a NULL parameter value is exported as "".
func Fold(rows []Row, opts FoldOptions) []connection.Record {
	index := make(map[int64]int)
	var out []connection.Record

	for _, row := range rows {
		i, ok := index[row.ConnectionID]
		if !ok {
			rec := connection.New(row.ConnectionName, row.Protocol)
			rec.SetGroup(row.GroupPath.String)
			if opts.LegacyShape {
				rec.Protocol = row.GroupPath.String
				rec.SetGroup(row.Protocol)
			}
			if opts.Namer != nil {
				rec.Name = opts.Namer.Unique(rec.Name, row.Protocol)
			}
			i = len(out)
			index[row.ConnectionID] = i
			out = append(out, rec)
		}

		if !row.ParameterName.Valid {
			continue
		}
		out[i].Parameters[row.ParameterName.String] = row.ParameterValue.String
	}
	return out
}
