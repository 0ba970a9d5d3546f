package apiclient

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
)

func (c *Client) Login(ctx context.Context, email, password string) (*LoginResponse, error) {
	var resp LoginResponse
	if err := c.do(ctx, http.MethodPost, "/login", nil, LoginRequest{Email: email, Password: password}, &resp); err != nil {
		return nil, err
	}
	if resp.AccessToken == "" {
		return nil, fmt.Errorf("login response carried no access token")
	}
	return &resp, nil
}

func (c *Client) Register(ctx context.Context, req RegisterRequest) error {
	return c.do(ctx, http.MethodPost, "/register", nil, req, nil)
}

// Hello is the API's authenticated liveness greeting.
func (c *Client) Hello(ctx context.Context) (json.RawMessage, error) {
	var raw json.RawMessage
	if err := c.do(ctx, http.MethodGet, "/hello", nil, nil, &raw); err != nil {
		return nil, err
	}
	return raw, nil
}

// DoctorAppointments lists the signed-in doctor's appointments.
func (c *Client) DoctorAppointments(ctx context.Context) ([]Appointment, error) {
	var out []Appointment
	if err := c.do(ctx, http.MethodGet, "/appointments/doctor", nil, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// PatientAppointments lists the signed-in patient's appointments.
func (c *Client) PatientAppointments(ctx context.Context) ([]Appointment, error) {
	var out []Appointment
	if err := c.do(ctx, http.MethodGet, "/appointments/patient", nil, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) CreateAppointment(ctx context.Context, req CreateAppointmentRequest) error {
	return c.do(ctx, http.MethodPost, "/appointments", nil, req, nil)
}

// Users lists the directory entries with the given role.
func (c *Client) Users(ctx context.Context, role string) ([]User, error) {
	q := url.Values{}
	q.Set("role", role)

	var out []User
	if err := c.do(ctx, http.MethodGet, "/users", q, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) Notes(ctx context.Context, query NoteQuery) ([]Note, error) {
	q := url.Values{}
	if query.PatientID != 0 {
		q.Set("patient_id", strconv.FormatInt(query.PatientID, 10))
	}
	q.Set("search", query.Search)
	if query.Limit > 0 {
		q.Set("limit", strconv.Itoa(query.Limit))
	}

	var out []Note
	if err := c.do(ctx, http.MethodGet, "/notes/", q, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) CreateNote(ctx context.Context, req CreateNoteRequest) (*Note, error) {
	var out Note
	if err := c.do(ctx, http.MethodPost, "/notes/", nil, req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) UpdateNote(ctx context.Context, id int64, content string) (*Note, error) {
	var out Note
	path := "/notes/update/" + strconv.FormatInt(id, 10)
	if err := c.do(ctx, http.MethodPut, path, nil, UpdateNoteRequest{Content: content}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) DeleteNote(ctx context.Context, id int64) error {
	return c.do(ctx, http.MethodDelete, "/notes/delete/"+strconv.FormatInt(id, 10), nil, nil, nil)
}
