package service

import (
	"context"
	"time"

	"github.com/turtacn/advisorhub/internal/application/dto"
	"github.com/turtacn/advisorhub/internal/domain/models"
	"github.com/turtacn/advisorhub/internal/domain/repository"
	"github.com/turtacn/advisorhub/pkg/errors"
	"github.com/turtacn/advisorhub/pkg/logger"
	"github.com/turtacn/advisorhub/pkg/utils"
)

// ClientAppService manages the firm's business clients.
type ClientAppService interface {
	Create(ctx context.Context, p *models.Principal, req *dto.ClientRequest) (*models.Client, error)
	Get(ctx context.Context, p *models.Principal, clientID string) (*models.Client, error)
	Update(ctx context.Context, p *models.Principal, clientID string, req *dto.ClientRequest) (*models.Client, error)
	Delete(ctx context.Context, p *models.Principal, clientID string) error
	List(ctx context.Context, p *models.Principal, page dto.PageRequest) (*dto.PageResult, error)
}

type clientAppServiceImpl struct {
	tx     repository.Transactor
	repos  repository.Repositories
	logger logger.Logger
}

// NewClientAppService creates a new instance of ClientAppService
func NewClientAppService(tx repository.Transactor, repos repository.Repositories, log logger.Logger) ClientAppService {
	return &clientAppServiceImpl{tx: tx, repos: repos, logger: log.WithComponent("ClientAppService")}
}

func (s *clientAppServiceImpl) Create(ctx context.Context, p *models.Principal, req *dto.ClientRequest) (*models.Client, error) {
	firmID, err := requireFirmRole(p, editorRoles...)
	if err != nil {
		return nil, err
	}
	if err := utils.ValidateStruct(req); err != nil {
		return nil, err
	}
	client := models.NewClient(firmID, req.Name)
	applyClient(client, req)
	if err := s.repos.Clients.Save(ctx, client); err != nil {
		return nil, err
	}
	s.logger.Info(ctx, "Client created", logger.String("firm_id", firmID.String()), logger.String("client_id", client.ID.String()))
	return client, nil
}

func (s *clientAppServiceImpl) Get(ctx context.Context, p *models.Principal, clientID string) (*models.Client, error) {
	firmID, err := requireFirm(p)
	if err != nil {
		return nil, err
	}
	id, err := parseID("client_id", clientID)
	if err != nil {
		return nil, err
	}
	return s.repos.Clients.FindByID(ctx, firmID, id)
}

func (s *clientAppServiceImpl) Update(ctx context.Context, p *models.Principal, clientID string, req *dto.ClientRequest) (*models.Client, error) {
	firmID, err := requireFirmRole(p, editorRoles...)
	if err != nil {
		return nil, err
	}
	id, err := parseID("client_id", clientID)
	if err != nil {
		return nil, err
	}
	if err := utils.ValidateStruct(req); err != nil {
		return nil, err
	}
	client, err := s.repos.Clients.FindByID(ctx, firmID, id)
	if err != nil {
		return nil, err
	}
	client.Name = req.Name
	applyClient(client, req)
	client.UpdatedAt = time.Now().UTC()
	if err := s.repos.Clients.Update(ctx, client); err != nil {
		return nil, err
	}
	return client, nil
}

// Delete removes a client that has no engagements.
func (s *clientAppServiceImpl) Delete(ctx context.Context, p *models.Principal, clientID string) error {
	firmID, err := requireFirmRole(p, editorRoles...)
	if err != nil {
		return err
	}
	id, err := parseID("client_id", clientID)
	if err != nil {
		return err
	}
	return s.tx.WithinTransaction(ctx, func(ctx context.Context, repos repository.Repositories) error {
		if _, err := repos.Clients.FindByID(ctx, firmID, id); err != nil {
			return err
		}
		n, err := repos.Engagements.CountByClient(ctx, firmID, id)
		if err != nil {
			return err
		}
		if n > 0 {
			return errors.ErrConflict("client still has engagements").WithMetadata("engagements", n)
		}
		return repos.Clients.Delete(ctx, firmID, id)
	})
}

func (s *clientAppServiceImpl) List(ctx context.Context, p *models.Principal, page dto.PageRequest) (*dto.PageResult, error) {
	firmID, err := requireFirm(p)
	if err != nil {
		return nil, err
	}
	if err := utils.ValidateStruct(&page); err != nil {
		return nil, err
	}
	clients, total, err := s.repos.Clients.List(ctx, firmID, page.ToPage())
	if err != nil {
		return nil, err
	}
	return dto.NewPageResult(clients, page.ToPage(), total), nil
}

func applyClient(c *models.Client, req *dto.ClientRequest) {
	c.Industry = req.Industry
	c.AnnualRevenue = req.AnnualRevenue
	c.EmployeeCount = req.EmployeeCount
	c.ContactEmail = utils.NormalizeEmail(req.ContactEmail)
}
