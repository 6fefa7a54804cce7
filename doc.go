// Package beanstalk is a client for the beanstalkd work queue.
//
// A Client owns a single connection and performs one request/response
// exchange at a time. Producers insert jobs into the tube in use:
//
//	client, err := beanstalk.Connect(ctx, beanstalk.DefaultConfig())
//	if err != nil {
//		return err
//	}
//	defer client.Close()
//
//	client.Use(ctx, "emails")
//	id, err := client.PutDefault(ctx, payload)
//
// Workers reserve jobs from the watched tubes and finish them through the
// returned Job:
//
//	job, err := client.ReserveWithTimeout(ctx, 5*time.Second)
//	if proto.IsStatus(err, proto.StatusTimedOut) {
//		continue
//	}
//	...
//	job.Delete(ctx)
//
// Every error is one of three kinds defined in the proto package:
// ConnectionError and UnexpectedResponseError mean the connection must be
// closed or reconnected, CommandFailedError is an expected outcome such as
// NOT_FOUND and leaves the connection usable. proto.ShouldCloseConnection
// tells them apart.
package beanstalk
