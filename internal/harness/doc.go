// Package harness executes declarative rendering scenarios.
//
// A scenario is a YAML file describing a sequence of render passes against
// a recording host, with assertions on the host call log, the committed
// trace, and the final tree. Scenarios run with a manual clock and a fresh
// in-memory trace store, so results are identical across runs and suitable
// for golden file comparison.
//
// # Scenario Format
//
//	name: scenario_name
//	description: "What this scenario validates"
//	steps:
//	  - render:
//	      type: page
//	      props: { title: hello }
//	      children:
//	        - { type: item, key: a, text: x }
//	    priority: sync        # sync (default), interactive, low
//	  - advance: 6000         # move the clock forward (ms)
//	  - flush: deferred       # run a queued idle callback
//	    budget_ms: 100        # its slice budget
//	  - flush: animation      # run a queued before-paint callback
//	  - unmount: true
//	assertions:
//	  - type: tree_equals
//	    tree: |
//	      #root
//	        page {"title":"hello"}
//	  - type: op_order
//	    ops: [create, append]
//	  - type: op_count
//	    op: create
//	    count: 2
//	  - type: commit_count
//	    count: 1
//	  - type: mutation_count
//	    count: 3
//
// Trees are host and text nodes only; scenarios cannot describe components,
// providers or boundaries - those are exercised from Go tests.
package harness
