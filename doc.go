// Package dtable compiles decision tables into bitmap indexes and classifies
// records against them.
//
// A decision table is an ordered list of rules. Each rule constrains some
// attributes of a record (an equality key or a half-open range [low, high))
// and leaves the others as wildcards. Compiling a table builds, per
// attribute, a sorted breakpoint axis whose buckets hold the rules covering
// them as roaring bitmaps. Classification then intersects one bucket per
// attribute instead of scanning the rules.
//
// # Quick Start
//
//	rs := rule.NewRuleSet("age", "tier").
//	    MustAppend("adult-gold", "approve", map[string]rule.Constraint{
//	        "age":  rule.IntRange(18, 65),
//	        "tier": rule.Eq(rule.String("gold")),
//	    }).
//	    MustAppend("minor", "deny", map[string]rule.Constraint{
//	        "age": rule.IntRange(0, 18),
//	    })
//
//	t, _ := dtable.Compile(rs)
//	m, ok, _ := t.Classify(rule.Record{"age": rule.Int(30), "tier": rule.String("gold")})
//	// m.Output == "approve", ok == true
//
// # Tie Breaking
//
// When several rules match, Classify returns the one with the lowest index,
// that is the rule listed first. ClassifyAll returns every match.
//
// # Persistence
//
// Tables encode to a compact, checksummed binary format with optional LZ4 or
// ZSTD compression:
//
//	data, _ := dtable.Encode(t, dtable.WithCompression(dtable.CompressionZSTD))
//	t, err := dtable.Decode(data) // ErrCorruptTable on damaged input
//
// A Store keeps versioned tables in any blobstore.BlobStore (local disk,
// memory, S3 or MinIO) and tracks the current one.
//
// # Serving
//
// An Engine holds the current table behind an atomic pointer. Classification
// never blocks, while Compile, Publish and Load swap in a new table once it
// is complete:
//
//	e := dtable.NewEngine(dtable.WithMemoryLimit(256 << 20))
//	defer e.Close()
//
//	_, _ = e.Compile(ctx, rs)
//	m, ok, err := e.Classify(ctx, rec)
package dtable
