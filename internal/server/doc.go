// Package server is an in-memory implementation of the movie catalog API, used for local development
// (`myflix serve`) and end-to-end tests of the client.
//
// # Router Infrastructure
//
// The [Router] interface defines HTTP routing with middleware support.
//
// [Middleware] wraps handlers in reverse order (last added executes first), following the standard Go pattern.
//
// The [BasicRouter] implementation uses [http.ServeMux] internally. Several methods may share one path
// pattern; requests with any other method get 405 with an Allow header.
//
// # Handler Interface
//
// Custom handlers implement the [Handler] interface and return their [Route] table, so a handler keeps its
// route definitions next to its implementation. [API] is the catalog handler.
//
// # Catalog Store
//
// [Store] holds accounts, bearer tokens and movies behind a mutex. Passwords are hashed with bcrypt and
// tokens are random uuids that optionally expire. Revoking tokens lets tests simulate an expired session.
//
// # Wire Format
//
// Responses mirror the hosted service: users carry `_id` and `favoriteMovies` entries of
// `{movieId, comment}`, failures are JSON `{"error": ...}` or `{"errors": [{"msg": ...}]}` except for a
// missing or unknown token, which answers 401 with a plain text body.
// With [Opts.ExtendedIDs] favorite movie ids are sent as `{"$oid": ...}`.
package server
