// Package httpapp provides the HTTP server for ysocial.
//
//	@title						ysocial API
//	@version					1.0
//	@description				A small social network: short posts with hashtags, a shared feed and follow edges.
//	@description
//	@description				## Authentication
//	@description
//	@description				Register once, then log in for a bearer token:
//	@description				```bash
//	@description				curl -X POST /register -d '{"username":"alice","email":"alice@example.com","password":"secret1"}'
//	@description				curl -X POST /login -d '{"username":"alice","password":"secret1"}'
//	@description				# Returns: {"access_token": "TOKEN", "expires_at": "..."}
//	@description				```
//	@description
//	@description				Scripts can instead enroll a public key (`POST /auth/keys`) and sign
//	@description				challenges from `POST /auth/challenge`, exchanging them at `POST /auth/verify`.
//	@description
//	@description				## Content filter
//	@description				Posts containing a backslash or any character outside printable ASCII are not
//	@description				published. The author receives a notification explaining why.
//
//	@contact.name				ysocial
//	@license.name				MIT
//
//	@host						localhost:8080
//	@BasePath					/
//
//	@securityDefinitions.apikey	BearerAuth
//	@in							header
//	@name						Authorization
//	@description				Bearer token from /login or /auth/verify
//
//	@tag.name					Posts
//	@tag.description			Create, read and delete posts.
//
//	@tag.name					Users
//	@tag.description			Profiles, notifications and follow edges.
//
//	@tag.name					Accounts
//	@tag.description			Registration and password login.
//
//	@tag.name					Authentication
//	@tag.description			Public-key challenge login.
//
//	@tag.name					Admin
//	@tag.description			Role assignment. Requires X-Admin-Secret header.
package httpapp
