// Package natsclient wraps a nats.go connection with status tracking,
// reconnect handling and a bounded drain on Close.
//
//	client, err := natsclient.NewClient(cfg.NATS.URL,
//	    natsclient.WithName("esm"),
//	    natsclient.WithLogger(logger),
//	)
//	if err != nil {
//	    return err
//	}
//	if err := client.Connect(ctx); err != nil {
//	    return err
//	}
//	defer client.Close(context.Background())
//
// The event package publishes status transitions through Client.Publish.
// Integration tests start a disposable server with NewTestClient, which
// is only compiled with the integration build tag.
package natsclient
