// Package domain defines the data models, sentinel errors and interfaces
// shared by the group engine, its stores and the member client.
// It contains plain types and contracts only.
package domain
