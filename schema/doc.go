// Package schema defines the typed attribute model shared by agent and
// service descriptions.
//
// An AttributeSchema names a typed attribute, a DataModel groups attribute
// schemas, and a Description is a bag of typed values checked against a
// DataModel when it is built. Values are a closed set of kinds (int, float,
// bool, string and Location) carried by the Value type.
package schema
