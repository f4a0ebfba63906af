// Package client is the docql database facade.
//
// A DB wraps a document store with the query pipeline: every query tree is
// partially evaluated, translated to SQL and executed.
//
//	db, err := client.Open(ctx, client.Options{Path: "app.db"})
//	...
//	adults := query.From("users").Where(func(u query.Var) expr.Node {
//		return expr.Ge(u.Field("age"), expr.Const(18))
//	})
//	rows, err := db.Query(ctx, adults.Node())
//
// Explain runs the same pipeline without executing and reports what
// folding did and the SQL that would run.
package client
