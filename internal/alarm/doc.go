// Package alarm renders batches of health findings into plain-text mail and
// delivers them over SMTP submission with STARTTLS. Delivery is best effort:
// a failed send is logged together with the undelivered body and never
// reported to the caller.
package alarm
