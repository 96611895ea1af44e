// Package queue is the business boundary for the alert queue: server-side
// filter/sort/pagination state, the page-scoped selection set, and the bulk
// status mutation coordinator. All reads go through the resource cache so
// identical concurrent queries share one backend fetch.
package queue
