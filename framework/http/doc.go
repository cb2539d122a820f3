// Package http provides the small request and response helpers shared by the
// debug inspector handlers.
//
//	req := gohttp.NewRequest(r)
//	res := gohttp.NewResponse(w)
//
//	var action struct {
//	    Type    string `json:"type"`
//	    Payload any    `json:"payload"`
//	}
//	if err := req.Bind(&action); err != nil {
//	    res.BadRequest(err.Error())
//	    return
//	}
//	res.Accepted(action)
//
// Every JSON body written by Response is either {"data": ...} or
// {"message": ...}.
package http
