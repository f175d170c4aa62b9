// Package ssh runs the operator's remote script on worker hosts.
//
// [Client] opens a key-authenticated connection to one host, retrying while
// sshd comes up, and runs the script under a login bash shell. [Executor] fans
// a script out to all hosts of a worker and reports the primary host's result.
//
// Host key verification is disabled by default because workers are recreated
// with fresh keys. Set Config.HostKeyCallback to verify keys.
package ssh
