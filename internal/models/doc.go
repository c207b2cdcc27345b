// Package models defines the catalog client's data model: users, favorite entries, and movies.
//
// # Identifiers
//
// The catalog service is backed by a document store and does not always emit identifiers in the same
// shape. An id may arrive as a plain string ("64f0...") or as a wrapped object ({"$oid": "64f0..."}).
// [ObjectID] decodes both, and [CanonicalID] reduces any representation to one comparable string.
// Code that compares ids must go through [CanonicalID] or [ObjectID.String]; raw forms are never compared.
//
// # Favorites
//
// A [User] carries an ordered list of [FavoriteEntry] values, each a movie id plus an optional comment.
// Older server revisions returned a flat list of ids; those decode as entries without a comment.
// Duplicate ids in a payload collapse to their first occurrence so a decoded [Favorites] list never holds
// the same movie twice.
package models
