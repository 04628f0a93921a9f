// Package peopledoc is a client for the PeopleDoc REST API.
//
// Entities (employees, documents and signing processes) are schema-checked
// models: every field write is coerced through the rule declared in
// attributes/, and invalid values are rejected at assignment time.
//
//	client, err := peopledoc.New(&transport.Config{
//		BaseURL: "https://api.people-doc.com/api/v1/",
//		APIKey:  os.Getenv("PEOPLEDOC_API_KEY"),
//	})
//
//	emp, err := client.Employees.New(map[string]any{
//		"technical_id": "E-001",
//		"first_name":   "Ada",
//		"last_name":    "Lovelace",
//		"birth_date":   time.Date(1815, time.December, 10, 0, 0, 0, 0, time.Local),
//	})
//	_, err = emp.Save(ctx)
//
// Every operation is synchronous and takes a context. To run one in the
// background and receive the outcome through a callback, an awaitable, or
// both, wrap it with deferred.Go:
//
//	d := deferred.Go(func(e *peopledoc.Employee, err error) {
//		...
//	}, func() (*peopledoc.Employee, error) {
//		return client.Employees.FindByID(ctx, "E-001")
//	})
//	emp, err := d.Await(ctx)
package peopledoc
