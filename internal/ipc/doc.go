// Package ipc exposes the task store over JSON-RPC on a unix domain
// socket. Each store operation is one RPC method; responses are success
// envelopes carrying the entity, or carry an error envelope naming the
// failure kind. The store's transaction discipline keeps the checkout
// invariants intact no matter how many clients connect.
package ipc
