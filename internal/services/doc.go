// Package services talks to the remote movie catalog service.
//
// [Gateway] is the single HTTP entry point. It attaches the bearer token, paces outbound requests with a
// token-bucket limiter, and turns every non-2xx response into a [*GatewayError] with a [Kind]:
//
//	401      -> [KindAuthorization]
//	404      -> [KindNotFound]
//	409      -> [KindConflict]
//	400, 422 -> [KindValidation]
//	other    -> [KindRemote]
//
// Network failures and undecodable success bodies are [KindTransport]. Each kind unwraps to the matching
// sentinel in the shared package, so callers can use [errors.Is] with shared.ErrAuthorization and friends.
//
// # Authorization failures
//
// A 401 on a request that carried a token means the session is over no matter which component sent it.
// The gateway does not decide what to do about that; it notifies every [Gateway.OnUnauthorized]
// subscriber before returning the error. The auth gate subscribes and tears the session down.
//
// [MyFlix] wraps the gateway with the typed endpoints of the catalog API.
package services
