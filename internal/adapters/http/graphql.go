package http

import (
	"github.com/gofiber/fiber/v2"
	"github.com/graphql-go/graphql"

	"github.com/anderzubi/orthopin/internal/core/domain"
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

	overlayType := graphql.NewObject(graphql.ObjectConfig{
		Name: "Overlay",
		Fields: graphql.Fields{
			"id":           &graphql.Field{Type: graphql.String},
			"name":         &graphql.Field{Type: graphql.String},
			"image_ref":    &graphql.Field{Type: graphql.String},
			"width_px":     &graphql.Field{Type: graphql.Float},
			"height_px":    &graphql.Field{Type: graphql.Float},
			"opacity":      &graphql.Field{Type: graphql.Float},
			"visible":      &graphql.Field{Type: graphql.Boolean},
			"capture_date": &graphql.Field{Type: graphql.String},
			"corners": &graphql.Field{
				Type: graphql.NewList(geoPointType),
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					var corners domain.QuadCorners
					switch o := p.Source.(type) {
					case *domain.Overlay:
						corners = o.GeoCorners
					case domain.Overlay:
						corners = o.GeoCorners
					default:
						return nil, nil
					}
					return corners[:], nil
				},
			},
			"ground_width_m": &graphql.Field{
				Type: graphql.Float,
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					if o := overlayFromSource(p.Source); o != nil {
						w, _ := deps.Overlays.GroundSpan(o)
						return w, nil
					}
					return nil, nil
				},
			},
			"ground_height_m": &graphql.Field{
				Type: graphql.Float,
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					if o := overlayFromSource(p.Source); o != nil {
						_, h := deps.Overlays.GroundSpan(o)
						return h, nil
					}
					return nil, nil
				},
			},
		},
	})

	auditType := graphql.NewObject(graphql.ObjectConfig{
		Name: "AuditEntry",
		Fields: graphql.Fields{
			"id":      &graphql.Field{Type: graphql.String},
			"actor":   &graphql.Field{Type: graphql.String},
			"action":  &graphql.Field{Type: graphql.String},
			"subject": &graphql.Field{Type: graphql.String},
		},
	})

	queryType := graphql.NewObject(graphql.ObjectConfig{
		Name: "Query",
		Fields: graphql.Fields{
			"overlay": &graphql.Field{
				Type:        overlayType,
				Description: "Get an overlay by ID",
				Args: graphql.FieldConfigArgument{
					"id": &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.String)},
				},
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					id := p.Args["id"].(string)
					return deps.Overlays.GetByID(p.Context, id)
				},
			},
			"latestOverlay": &graphql.Field{
				Type:        overlayType,
				Description: "The most recently saved overlay",
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					return deps.Overlays.Latest(p.Context)
				},
			},
			"overlays": &graphql.Field{
				Type:        graphql.NewList(overlayType),
				Description: "List overlays, newest first",
				Args: graphql.FieldConfigArgument{
					"limit":  &graphql.ArgumentConfig{Type: graphql.Int, DefaultValue: 50},
					"offset": &graphql.ArgumentConfig{Type: graphql.Int, DefaultValue: 0},
				},
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					limit := p.Args["limit"].(int)
					offset := p.Args["offset"].(int)
					overlays, _, err := deps.Overlays.List(p.Context, limit, offset)
					return overlays, err
				},
			},
			"auditTrail": &graphql.Field{
				Type:        graphql.NewList(auditType),
				Description: "Recent audit entries, newest first",
				Args: graphql.FieldConfigArgument{
					"limit": &graphql.ArgumentConfig{Type: graphql.Int, DefaultValue: 50},
				},
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					limit := p.Args["limit"].(int)
					return deps.Overlays.AuditTrail(p.Context, limit)
				},
			},
			"alignmentMode": &graphql.Field{
				Type:        graphql.String,
				Description: "Current alignment session mode",
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					return string(deps.Alignment.Mode()), nil
				},
			},
		},
	})

	return graphql.NewSchema(graphql.SchemaConfig{
		Query: queryType,
	})
}

func overlayFromSource(src interface{}) *domain.Overlay {
	switch o := src.(type) {
	case *domain.Overlay:
		return o
	case domain.Overlay:
		return &o
	default:
		return nil
	}
}

// GraphQLHandler serves the GraphQL endpoint.
func GraphQLHandler(deps *Dependencies) fiber.Handler {
	schema, err := buildSchema(deps)
	if err != nil {
		// This would be a programming error in the schema definition
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
			return c.Status(400).JSON(fiber.Map{"error": "invalid request body"})
		}

		result := graphql.Do(graphql.Params{
			Schema:         schema,
			RequestString:  req.Query,
			VariableValues: req.Variables,
			OperationName:  req.OperationName,
			Context:        c.Context(),
		})

		return c.JSON(result)
	}
}
