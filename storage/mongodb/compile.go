package mongodb

import (
	"go.mongodb.org/mongo-driver/bson"

	"photogram/storage/query"
)

// compilePredicate lowers a query predicate tree to a bson filter.
func compilePredicate(predicate query.Predicate) bson.M {
	switch p := predicate.(type) {
	case nil:
		return bson.M{}
	case query.Eq:
		return bson.M{p.Field: p.Value}
	case query.In:
		return bson.M{p.Field: bson.M{"$in": p.Values}}
	case query.Or:
		subs := make(bson.A, len(p))
		for i, sub := range p {
			subs[i] = compilePredicate(sub)
		}
		return bson.M{"$or": subs}
	case query.And:
		subs := make(bson.A, len(p))
		for i, sub := range p {
			subs[i] = compilePredicate(sub)
		}
		return bson.M{"$and": subs}
	default:
		return bson.M{}
	}
}

func compileSort(keys []query.Sort) bson.D {
	sort := make(bson.D, len(keys))
	for i, key := range keys {
		direction := 1
		if key.Descending {
			direction = -1
		}
		sort[i] = bson.E{Key: key.Field, Value: direction}
	}
	return sort
}
