// Package tree implements the declarative decision tree: the YAML
// specification format, its load-time validation, and the generic
// traversal engine that advances a session one answered question per
// turn.
//
// A specification document looks like:
//
//	__data__:
//	    url: http://profiles.example.com/api/getFarmerDetails
//	    params: [telNo]
//
//	__start__:
//	    display: "Hello."
//	    next: quantityMilked
//
//	quantityMilked:
//	    question: "How much milk was collected?"
//	    validate: integer
//	    next: milkTimestamp
//
//	milkTimestamp:
//	    question: "When was this collection done?"
//	    options:
//	        - display: "Today"
//	          default: today
//	          next: __finish__
//	        - display: "Yesterday"
//	          default: yesterday
//	          next: __finish__
//
//	__finish__:
//	    display: "Thank you! Your milk collection was registered successfully."
//
//	__post__:
//	    url: http://profiles.example.com/api/addMilkCollections
//	    params: [result]
//
// Specification errors (dangling next references, unknown validator
// kinds) are caught when the document is parsed, never at runtime per
// subscriber.
package tree
