// Package gmail is a thin client over the Gmail API for one workspace's
// credentials.
//
// The client never refreshes tokens. Callers obtain a valid token from the
// credential manager and hand it in as an oauth2.TokenSource:
//
//	creds, err := mgr.GetValidCredentials(ctx, workspaceID)
//	if err != nil || creds == nil {
//	    ...
//	}
//	client, err := gmail.NewClient(ctx, google.StaticTokenSource(creds.Token()), metrics)
//	msgs, err := client.ListMessages(ctx, gmail.ListOptions{Labels: []string{gmail.LabelInbox}})
//
// Every API call is traced and counted in google_api_operations_total.
package gmail
