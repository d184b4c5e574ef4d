// Package advisorhub is a small Go client for the AdvisorHub report status RPC.
// It needs no generated stubs: requests and responses travel as google.protobuf.Struct.
package advisorhub

import (
	"context"
	"errors"
	"time"

	"github.com/cenkalti/backoff/v4"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"
)

const getReportStatusMethod = "/advisorhub.v1.ReportService/GetReportStatus"

var (
	ErrEmptyReportID = errors.New("report id is required")
	ErrNoToken       = errors.New("access token is required")
)

// ReportStatus is the progress of one BBA report.
type ReportStatus struct {
	ReportID     string
	EngagementID string
	Status       string // in_progress, completed or failed
	CurrentStep  string
	NextStep     string
	LastError    string
}

// Settled reports whether the report stopped moving: it completed or a step failed.
func (s *ReportStatus) Settled() bool {
	return s.Status == "completed" || s.Status == "failed"
}

// Client calls advisorhub.v1.ReportService with a bearer token.
type Client struct {
	conn       grpc.ClientConnInterface
	token      string
	newBackOff func() backoff.BackOff
}

// NewClient wraps an existing connection. The token is a regular AdvisorHub access token.
func NewClient(conn grpc.ClientConnInterface, token string) (*Client, error) {
	if token == "" {
		return nil, ErrNoToken
	}
	return &Client{
		conn:  conn,
		token: token,
		newBackOff: func() backoff.BackOff {
			b := backoff.NewExponentialBackOff()
			b.InitialInterval = 500 * time.Millisecond
			b.MaxInterval = 10 * time.Second
			b.MaxElapsedTime = 0
			return b
		},
	}, nil
}

// GetReportStatus fetches the current status of reportID.
func (c *Client) GetReportStatus(ctx context.Context, reportID string) (*ReportStatus, error) {
	if reportID == "" {
		return nil, ErrEmptyReportID
	}
	req, err := structpb.NewStruct(map[string]interface{}{"report_id": reportID})
	if err != nil {
		return nil, err
	}

	ctx = metadata.AppendToOutgoingContext(ctx, "authorization", "Bearer "+c.token)
	resp := new(structpb.Struct)
	if err := c.conn.Invoke(ctx, getReportStatusMethod, req, resp); err != nil {
		return nil, err
	}

	f := resp.GetFields()
	return &ReportStatus{
		ReportID:     f["report_id"].GetStringValue(),
		EngagementID: f["engagement_id"].GetStringValue(),
		Status:       f["status"].GetStringValue(),
		CurrentStep:  f["current_step"].GetStringValue(),
		NextStep:     f["next_step"].GetStringValue(),
		LastError:    f["last_error"].GetStringValue(),
	}, nil
}

// WaitForReport polls until the report settles or ctx ends.
// Unavailable and ResourceExhausted answers are retried; any other error stops the wait.
func (c *Client) WaitForReport(ctx context.Context, reportID string) (*ReportStatus, error) {
	var last *ReportStatus
	op := func() error {
		st, err := c.GetReportStatus(ctx, reportID)
		if err != nil {
			if retryable(err) {
				return err
			}
			return backoff.Permanent(err)
		}
		last = st
		if !st.Settled() {
			return errNotSettled
		}
		return nil
	}
	if err := backoff.Retry(op, backoff.WithContext(c.newBackOff(), ctx)); err != nil {
		return last, err
	}
	return last, nil
}

var errNotSettled = errors.New("report still in progress")

func retryable(err error) bool {
	switch status.Code(err) {
	case codes.Unavailable, codes.ResourceExhausted:
		return true
	default:
		return false
	}
}

// IsNotFound reports whether err means the report does not exist for the caller's firm.
func IsNotFound(err error) bool {
	return status.Code(err) == codes.NotFound
}

//Personal.AI order the ending
