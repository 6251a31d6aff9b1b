package service

import (
	"context"
	"errors"
	"strings"

	"pharmacy/internal/apperr"
	"pharmacy/internal/domain"
	"pharmacy/internal/repository"

	"github.com/google/uuid"
)

func (s *Service) ListSuppliers(ctx context.Context) ([]domain.Supplier, error) {
	suppliers, err := s.store.ListSuppliers(ctx)
	if err != nil {
		return nil, classify("list suppliers", err)
	}
	return suppliers, nil
}

func (s *Service) CreateSupplier(ctx context.Context, input domain.SupplierInput) (*domain.Supplier, error) {
	name := strings.TrimSpace(input.Name)
	if name == "" {
		return nil, apperr.Validation("Supplier name is required")
	}
	now := s.now()
	supplier := domain.Supplier{
		ID:        s.newID(),
		Name:      name,
		Email:     normalizeNullable(input.Email),
		Phone:     normalizeNullable(input.Phone),
		Address:   normalizeNullable(input.Address),
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.store.CreateSupplier(ctx, supplier); err != nil {
		return nil, classify("create supplier", err)
	}
	return &supplier, nil
}

func (s *Service) UpdateSupplier(ctx context.Context, id uuid.UUID, input domain.SupplierInput) (*domain.Supplier, error) {
	name := strings.TrimSpace(input.Name)
	if name == "" {
		return nil, apperr.Validation("Supplier name is required")
	}
	current, err := s.store.GetSupplier(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, apperr.NotFound("Record does not exist")
	}
	if err != nil {
		return nil, classify("get supplier", err)
	}

	updated := *current
	updated.Name = name
	updated.Email = normalizeNullable(input.Email)
	updated.Phone = normalizeNullable(input.Phone)
	updated.Address = normalizeNullable(input.Address)
	updated.UpdatedAt = s.now()
	if err := s.store.UpdateSupplier(ctx, updated); err != nil {
		return nil, classify("update supplier", err)
	}
	return &updated, nil
}

func (s *Service) DeleteSupplier(ctx context.Context, id uuid.UUID) error {
	err := s.store.DeleteSupplier(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return apperr.NotFound("Record does not exist")
	}
	if errors.Is(err, repository.ErrConflict) {
		return apperr.Validation("Supplier has purchase records and cannot be deleted")
	}
	if err != nil {
		return classify("delete supplier", err)
	}
	return nil
}

func (s *Service) ListMedicines(ctx context.Context) ([]domain.Medicine, error) {
	medicines, err := s.store.ListMedicines(ctx)
	if err != nil {
		return nil, classify("list medicines", err)
	}
	return medicines, nil
}

func (s *Service) CreateMedicine(ctx context.Context, input domain.MedicineInput) (*domain.Medicine, error) {
	brandName := strings.TrimSpace(input.BrandName)
	if brandName == "" {
		return nil, apperr.Validation("Brand name is required")
	}
	medicine := domain.Medicine{
		ID:           s.newID(),
		BrandName:    brandName,
		GenericName:  normalizeNullable(input.GenericName),
		Manufacturer: normalizeNullable(input.Manufacturer),
		CreatedAt:    s.now(),
	}
	if err := s.store.CreateMedicine(ctx, medicine); err != nil {
		return nil, classify("create medicine", err)
	}
	return &medicine, nil
}
