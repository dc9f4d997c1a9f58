package server

import (
	"bufio"
	"context"
	"errors"
	"net/http"
	"net/url"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"github.com/karloscodes/pagelet"
)

var errTransportClosed = errors.New("server: transport closed")

// FragmentHeader selects a fragment by id for partial refreshes. The query
// parameter variant is _pagelet.
const FragmentHeader = "X-Pagelet"

// dispatch is the catch-all handler feeding requests into the engine.
func (s *Server) dispatch(c *fiber.Ctx) error {
	req := s.buildRequest(c)
	t := newTransport()

	plan, err := s.dispatcher.Plan(c.UserContext(), req, t)
	if err != nil {
		// Configuration defect, not a user condition. Let the Fiber error
		// handler produce the response.
		return err
	}

	c.Status(t.statusCode())
	c.Set(fiber.HeaderContentType, fiber.MIMETextHTMLCharsetUTF8)
	c.Set("X-Request-ID", req.ID)

	if t.Done() {
		// Middleware handled or failed the request while still buffered.
		body := append([]byte(nil), t.buffered()...)
		s.drainPlan(plan)
		return c.Send(body)
	}

	c.Context().SetBodyStreamWriter(func(w *bufio.Writer) {
		t.activate(w)
		if err := s.dispatcher.Execute(context.Background(), plan); err != nil {
			s.log.Error("dispatch failed", "request_id", req.ID, "error", err)
		}
		if s.hub != nil {
			s.hub.CloseAll(req.ID)
		}
	})
	return nil
}

// drainPlan executes an already-finished plan so its instances return to
// the pool.
func (s *Server) drainPlan(plan *pagelet.Plan) {
	if err := s.dispatcher.Execute(context.Background(), plan); err != nil {
		s.log.Error("failed to drain plan", "error", err)
	}
}

// buildRequest translates the Fiber request into the engine's view of it.
func (s *Server) buildRequest(c *fiber.Ctx) *pagelet.Request {
	req := &pagelet.Request{
		ID:         uuid.NewString(),
		Method:     c.Method(),
		Path:       c.Path(),
		Query:      url.Values{},
		Header:     http.Header{},
		RemoteAddr: c.IP(),
	}

	c.Context().QueryArgs().VisitAll(func(key, value []byte) {
		req.Query.Add(string(key), string(value))
	})
	for key, values := range c.GetReqHeaders() {
		for _, v := range values {
			req.Header.Add(key, v)
		}
	}

	req.FragmentID = c.Get(FragmentHeader)
	if req.FragmentID == "" {
		req.FragmentID = req.Query.Get("_pagelet")
	}

	s.collectForm(c, req)
	return req
}

// collectForm accumulates body fields and upload metadata onto the request.
func (s *Server) collectForm(c *fiber.Ctx, req *pagelet.Request) {
	switch c.Method() {
	case fiber.MethodPost, fiber.MethodPut, fiber.MethodPatch:
	default:
		return
	}

	if form, err := c.MultipartForm(); err == nil && form != nil {
		req.Fields = url.Values(form.Value)
		for field, headers := range form.File {
			for _, fh := range headers {
				req.Files = append(req.Files, pagelet.FormFile{
					Field:    field,
					Name:     fh.Filename,
					Size:     fh.Size,
					MIMEType: fh.Header.Get(fiber.HeaderContentType),
				})
			}
		}
		return
	}

	args := c.Context().PostArgs()
	if args.Len() == 0 {
		return
	}
	req.Fields = url.Values{}
	args.VisitAll(func(key, value []byte) {
		req.Fields.Add(string(key), string(value))
	})
}
