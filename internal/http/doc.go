// Package httpapp provides the HTTP API for the forum.
//
//	@title						Forum API
//	@version					1.0
//	@description				Threads, nested comments, votes and a follow graph behind a JSON API.
//	@description
//	@description				## Authentication
//	@description
//	@description				Register or log in to receive a session token, then send it on every write:
//	@description				```bash
//	@description				curl -X POST /api/users -d '{"username":"alice","email":"a@example.com","password":"hunter2hunter2"}'
//	@description				# Returns: {"username":"alice","email":"a@example.com","token":"TOKEN","created_at":"..."}
//	@description				curl -X POST /api/threads -H "Authorization: Bearer TOKEN" -d '{"title":"Hello, World!","content":"..."}'
//	@description				```
//	@description				Tokens expire after 14 days. Reads accept an optional token; with one, `is_voted` and
//	@description				`following` are computed for the caller.
//	@description
//	@description				## Identifiers
//	@description				Threads are addressed by slug (`hello-world`). Comment ids are base 36 (`1z`).
//	@description
//	@description				## Errors
//	@description				| Status | Meaning |
//	@description				|--------|---------|
//	@description				| 400 | Malformed body or id |
//	@description				| 401 | Missing, invalid or expired token |
//	@description				| 403 | Action not allowed (following yourself) |
//	@description				| 404 | Slug, username or comment does not resolve |
//	@description				| 422 | `{"errors":{"field":["message"]}}` |
//
//	@contact.name				Forum
//	@license.name				MIT
//
//	@host						localhost:3000
//	@BasePath					/
//
//	@securityDefinitions.apikey	BearerAuth
//	@in							header
//	@name						Authorization
//	@description				"Bearer " followed by the token from /api/users or /api/users/login
//
//	@tag.name					Users
//	@tag.description			Registration, login and the current user.
//
//	@tag.name					Threads
//	@tag.description			Threads addressed by a slug derived from the title.
//
//	@tag.name					Comments
//	@tag.description			Comment trees, fetched one level at a time.
//
//	@tag.name					Votes
//	@tag.description			One vote per user per thread or comment. Casting and uncasting are idempotent.
//
//	@tag.name					Profiles
//	@tag.description			Public profiles, scores and the follow graph.
package httpapp
