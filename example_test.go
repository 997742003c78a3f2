package dtable_test

import (
	"fmt"
	"log"

	"github.com/hupe1980/dtable"
	"github.com/hupe1980/dtable/rule"
)

func ExampleCompile() {
	rs := rule.NewRuleSet("age", "tier").
		MustAppend("adult-gold", "approve", map[string]rule.Constraint{
			"age":  rule.IntRange(18, 65),
			"tier": rule.Eq(rule.String("gold")),
		}).
		MustAppend("minor", "deny", map[string]rule.Constraint{
			"age": rule.IntRange(0, 18),
		})

	t, err := dtable.Compile(rs)
	if err != nil {
		log.Fatal(err)
	}

	records := []rule.Record{
		{"age": rule.Int(30), "tier": rule.String("gold")},
		{"age": rule.Int(10), "tier": rule.String("bronze")},
		{"age": rule.Int(70), "tier": rule.String("gold")},
	}
	for _, rec := range records {
		m, ok, err := t.Classify(rec)
		if err != nil {
			log.Fatal(err)
		}
		if !ok {
			fmt.Println("no match")
			continue
		}
		fmt.Println(m.Index, m.Output)
	}
	// Output:
	// 0 approve
	// 1 deny
	// no match
}

func ExampleTable_Trace() {
	rs := rule.NewRuleSet("country", "amount").
		MustAppend("de-small", "auto", map[string]rule.Constraint{
			"country": rule.Eq(rule.String("DE")),
			"amount":  rule.Between(rule.Float(0), rule.Float(100)),
		}).
		MustAppend("any-large", "review", map[string]rule.Constraint{
			"amount": rule.Between(rule.Float(100), rule.Float(10000)),
		})

	t, err := dtable.Compile(rs)
	if err != nil {
		log.Fatal(err)
	}

	steps, err := t.Trace(rule.Record{"country": rule.String("FR"), "amount": rule.Float(250)})
	if err != nil {
		log.Fatal(err)
	}
	for _, s := range steps {
		fmt.Printf("%s: %d candidates\n", s.Attribute, s.Candidates)
	}
	// Output:
	// country: 1 candidates
	// amount: 1 candidates
}
