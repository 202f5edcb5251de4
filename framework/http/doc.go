// Package http provides request and response helpers for handlers that
// resolve components from a container.
//
// # Request
//
//	req := gohttp.NewRequest(r)
//
//	// Components of the request and session scopes are visible through
//	// the request context attached by the routing middleware.
//	cart, err := gohttp.Component[*Cart](req, c)
//
//	var payload struct {
//	    Name string `json:"name"`
//	}
//	if err := req.Bind(&payload); err != nil { ... } // JSON only
//
//	id   := req.RouteParam("id")
//	page := req.Query("page", "1")
//	rid  := req.ID()            // set by middleware.RequestID
//
// # Response
//
//	res := gohttp.NewResponse(w)
//
//	res.JSON(200, data)           // raw JSON with status
//	res.Success(data)             // 200 {"data": ...}
//	res.NoContent()               // 204
//	res.Error(400, "bad input")   // {"message": "bad input"}
//	res.NotFound()                // 404 {"message": "Not found."}
//	res.ServerError()             // 500 {"message": "Server Error."}
//	res.Failure(err)              // status chosen from the container error kind
package http
