// Package apiclient provides the authenticated, caching HTTP client used by
// every page to talk to a backend API that only distinguishes GET and POST:
//
//   - Credential injection from a pluggable TokenStore (see package tokenstore)
//   - Verb spoofing: PATCH and DELETE travel as POST with a _method field
//   - Response-shape validation and in-band error detection ({"error": ...} in a 2xx body)
//   - Opt-in read-through cache for GET, keyed by URL + JSON(params), deep-cloned on every hit
//   - One error shape (*Error) with a Kind discriminant for every failure
//   - Reporting of unexpected failures to a monitoring Reporter, with noise suppressed
//   - Prometheus metrics and logrus request diagnostics
//
// Each call makes exactly one transport attempt bounded by a 20 second timeout.
// Concurrent identical calls are not coalesced; both may reach the network.
//
// Typical usage:
//
//	tokens := tokenstore.NewCookieStore(tokenstore.NewMemoryCookies(), tokenstore.CookieOptions{Name: "token"})
//	client := apiclient.New("https://api.example.com",
//	    tokens,
//	    apiclient.WithInMemoryCache(5*time.Minute),
//	    apiclient.WithReporter(apiclient.NewLogReporter(logrus.StandardLogger())),
//	)
//	posts, err := client.Get(ctx, "posts", apiclient.Params{"page": 1}, true)
package apiclient
