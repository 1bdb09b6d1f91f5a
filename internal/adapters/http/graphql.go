package http

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/graphql-go/graphql"

	"github.com/koolihub/koolihub/internal/core/domain"
	"github.com/koolihub/koolihub/internal/pkg/metrics"
)

// buildSchema creates the GraphQL schema wired to our services.
func buildSchema(deps *Dependencies) (graphql.Schema, error) {
	geoPointType := graphql.NewObject(graphql.ObjectConfig{
		Name: "GeoPoint",
		Fields: graphql.Fields{
			"lat": &graphql.Field{Type: graphql.Float},
			"lon": &graphql.Field{Type: graphql.Float},
		},
	})

	tripType := graphql.NewObject(graphql.ObjectConfig{
		Name: "Trip",
		Fields: graphql.Fields{
			"id":          &graphql.Field{Type: graphql.String},
			"driver_id":   &graphql.Field{Type: graphql.String},
			"origin":      &graphql.Field{Type: graphql.String},
			"destination": &graphql.Field{Type: graphql.String},
			"pickup":      &graphql.Field{Type: geoPointType},
			"dropoff":     &graphql.Field{Type: geoPointType},
			"departure_time": &graphql.Field{
				Type: graphql.String,
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					switch t := p.Source.(type) {
					case *domain.Trip:
						return t.DepartureTime.Format(time.RFC3339), nil
					case domain.Trip:
						return t.DepartureTime.Format(time.RFC3339), nil
					}
					return nil, nil
				},
			},
			"price_per_seat":  &graphql.Field{Type: graphql.Float},
			"toll_charges":    &graphql.Field{Type: graphql.Float},
			"total_seats":     &graphql.Field{Type: graphql.Int},
			"available_seats": &graphql.Field{Type: graphql.Int},
			"status":          &graphql.Field{Type: graphql.String},
		},
	})

	matchType := graphql.NewObject(graphql.ObjectConfig{
		Name: "TripMatch",
		Fields: graphql.Fields{
			"trip": &graphql.Field{Type: tripType},
			"match": &graphql.Field{Type: graphql.NewObject(graphql.ObjectConfig{
				Name: "MatchScore",
				Fields: graphql.Fields{
					"match_score":         &graphql.Field{Type: graphql.Float},
					"pickup_distance_km":  &graphql.Field{Type: graphql.Float},
					"dropoff_distance_km": &graphql.Field{Type: graphql.Float},
					"is_within_radius":    &graphql.Field{Type: graphql.Boolean},
				},
			})},
		},
	})

	priceType := graphql.NewObject(graphql.ObjectConfig{
		Name: "PriceBreakdown",
		Fields: graphql.Fields{
			"base_fare":       &graphql.Field{Type: graphql.Float},
			"platform_fee":    &graphql.Field{Type: graphql.Float},
			"gst":             &graphql.Field{Type: graphql.Float},
			"toll_charges":    &graphql.Field{Type: graphql.Float},
			"discount_amount": &graphql.Field{Type: graphql.Float},
			"total_amount":    &graphql.Field{Type: graphql.Float},
		},
	})

	refundType := graphql.NewObject(graphql.ObjectConfig{
		Name: "RefundQuote",
		Fields: graphql.Fields{
			"is_eligible":            &graphql.Field{Type: graphql.Boolean},
			"refund_amount":          &graphql.Field{Type: graphql.Float},
			"refund_percentage":      &graphql.Field{Type: graphql.Float},
			"service_fee":            &graphql.Field{Type: graphql.Float},
			"hours_before_departure": &graphql.Field{Type: graphql.Float},
			"reason":                 &graphql.Field{Type: graphql.String},
		},
	})

	queryType := graphql.NewObject(graphql.ObjectConfig{
		Name: "Query",
		Fields: graphql.Fields{
			"trip": &graphql.Field{
				Type:        tripType,
				Description: "Get a trip by ID",
				Args: graphql.FieldConfigArgument{
					"id": &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.String)},
				},
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					return deps.Trips.GetByID(p.Context, p.Args["id"].(string))
				},
			},
			"searchTrips": &graphql.Field{
				Type:        graphql.NewList(matchType),
				Description: "Search upcoming trips by place name (fuzzy matching)",
				Args: graphql.FieldConfigArgument{
					"from":  &graphql.ArgumentConfig{Type: graphql.String, DefaultValue: ""},
					"to":    &graphql.ArgumentConfig{Type: graphql.String, DefaultValue: ""},
					"seats": &graphql.ArgumentConfig{Type: graphql.Int, DefaultValue: 0},
					"limit": &graphql.ArgumentConfig{Type: graphql.Int, DefaultValue: 20},
				},
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					result, err := deps.Search.Search(p.Context, domain.TripSearchCriteria{
						From:  p.Args["from"].(string),
						To:    p.Args["to"].(string),
						Seats: p.Args["seats"].(int),
						Limit: p.Args["limit"].(int),
					})
					if err != nil {
						return nil, err
					}
					metrics.SearchResults.WithLabelValues("text").Observe(float64(len(result.Matches)))
					return result.Matches, nil
				},
			},
			"quote": &graphql.Field{
				Type:        priceType,
				Description: "Price seats on a trip",
				Args: graphql.FieldConfigArgument{
					"trip_id":  &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.String)},
					"seats":    &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.Int)},
					"discount": &graphql.ArgumentConfig{Type: graphql.Float, DefaultValue: 0.0},
				},
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					return deps.Bookings.Quote(p.Context, p.Args["trip_id"].(string), p.Args["seats"].(int), p.Args["discount"].(float64))
				},
			},
			"refundQuote": &graphql.Field{
				Type:        refundType,
				Description: "Refund a cancellation would earn right now",
				Args: graphql.FieldConfigArgument{
					"booking_id": &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.String)},
				},
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					return deps.Bookings.RefundQuote(p.Context, p.Args["booking_id"].(string))
				},
			},
		},
	})

	return graphql.NewSchema(graphql.SchemaConfig{
		Query: queryType,
	})
}

// GraphQLHandler serves the GraphQL endpoint.
func GraphQLHandler(deps *Dependencies) fiber.Handler {
	schema, err := buildSchema(deps)
	if err != nil {
		panic("graphql schema build: " + err.Error())
	}

	type gqlRequest struct {
		Query         string                 `json:"query"`
		OperationName string                 `json:"operationName"`
		Variables     map[string]interface{} `json:"variables"`
	}

	return func(c *fiber.Ctx) error {
		var req gqlRequest
		if err := c.BodyParser(&req); err != nil {
			return errBadRequest(c, "invalid request body")
		}

		result := graphql.Do(graphql.Params{
			Schema:         schema,
			RequestString:  req.Query,
			VariableValues: req.Variables,
			OperationName:  req.OperationName,
			Context:        c.UserContext(),
		})

		return c.JSON(result)
	}
}
