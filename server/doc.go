/*
Package server exposes the task service as an HTTP JSON API.

# Basic Usage

	engine := recurrence.NewEngine()
	svc := task.NewService(memory.New(), engine)
	h, err := server.New(svc)
	if err != nil {
		log.Fatal(err)
	}
	http.ListenAndServe(":8080", h)

# Routes

  - GET /tasks - List tasks (?overdue=true, ?category=, ?assignee=)
  - POST /tasks - Create a task; the response carries its seeded due date
  - GET /tasks/<id> - One task, with its ETag header
  - PUT /tasks/<id> - Replace the editable fields (honors If-Match)
  - DELETE /tasks/<id> - Remove a task
  - POST /tasks/<id>/complete - Record a completion ({"at": RFC 3339}, X-Author header)
  - GET /tasks/<id>/occurrences?from=YYYY-MM-DD&to=YYYY-MM-DD - Project occurrences
  - GET /calendar.ics - Every task as a VCALENDAR of VTODOs
  - POST /tasks/import - Create or replace tasks from a VCALENDAR
  - GET /healthz - Liveness, never authenticated

# Authentication

WithAuthenticator puts the auth middleware in front of every route except
/healthz:

	tokens := authmem.New()
	tokens.AddToken("phone", secret)
	h, err := server.New(svc, server.WithAuthenticator(tokens, "X-Auth-Token"))

# Error Handling

Errors are returned as {"error": "..."} with the status derived from the
service and storage sentinels:

	storage.ErrNotFound            404
	task.ErrInvalidTask            400
	task.ErrInvalidRange           400
	task.ErrInvalidCalendar        400
	storage.ErrInvalidInput        400
	storage.ErrConflict            409
	storage.ErrPreconditionFailed  412

Anything else is logged and reported as 500.
*/
package server
