// Package models defines the vulndesk domain records that reports are
// built from: product hierarchy, engagements, tests, endpoints, findings,
// and the report row that tracks asynchronous generation.
//
// Records carry their relations as pointers (a Finding knows its Test,
// a Test its Engagement, and so on) so that serializers and templates can
// walk the tree without extra lookups. Many-to-many links are held as ID
// slices tagged `json:"-"`; they never appear in serialized field maps.
package models
