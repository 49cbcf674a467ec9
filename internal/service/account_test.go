package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mmeshcher/storefront/internal/model"
	"github.com/mmeshcher/storefront/internal/repository"
)

func TestUpdateProfile(t *testing.T) {
	tests := []struct {
		name       string
		in         ProfileInput
		wantWilaya string
		wantErr    error
	}{
		{name: "by code", in: ProfileInput{Name: " Nadia ", PhoneNumber: "0550123456", Wilaya: "31"}, wantWilaya: "Oran"},
		{name: "by name", in: ProfileInput{Name: "Nadia", PhoneNumber: "0550123456", Wilaya: "tlemcen"}, wantWilaya: "Tlemcen"},
		{name: "missing phone", in: ProfileInput{Name: "Nadia", Wilaya: "31"}, wantErr: ErrInvalidInput},
		{name: "missing wilaya", in: ProfileInput{Name: "Nadia", PhoneNumber: "0550"}, wantErr: ErrInvalidInput},
		{name: "unknown wilaya", in: ProfileInput{Name: "Nadia", PhoneNumber: "0550", Wilaya: "Lyon"}, wantErr: ErrInvalidInput},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := newMemRepo()
			userID := repo.addUser("Old", model.RoleCustomer)
			svc := newTestService(repo, Deps{})

			u, err := svc.UpdateProfile(context.Background(), userID, tt.in)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				assert.Equal(t, "Old", repo.users[userID].Name)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, "Nadia", u.Name)
			assert.Equal(t, tt.wantWilaya, repo.users[userID].Wilaya)
			assert.Equal(t, "0550123456", repo.users[userID].PhoneNumber)
		})
	}
}

func TestUpdateWilaya(t *testing.T) {
	repo := newMemRepo()
	userID := repo.addUser("Nadia", model.RoleCustomer)
	svc := newTestService(repo, Deps{})
	ctx := context.Background()

	u, err := svc.UpdateWilaya(ctx, userID, "16")
	require.NoError(t, err)
	assert.Equal(t, "Alger", u.Wilaya)
	assert.Equal(t, "Nadia", repo.users[userID].Name)

	_, err = svc.UpdateWilaya(ctx, userID, "99")
	assert.ErrorIs(t, err, ErrInvalidInput)

	_, err = svc.UpdateWilaya(ctx, 999, "16")
	assert.ErrorIs(t, err, repository.ErrNotFound)
}

func TestDeleteAccount_AdminForbidden(t *testing.T) {
	repo := newMemRepo()
	adminID := repo.addUser("Admin", model.RoleAdmin)
	svc := newTestService(repo, Deps{})

	err := svc.DeleteAccount(context.Background(), adminID)
	assert.ErrorIs(t, err, ErrForbidden)
	assert.Contains(t, repo.users, adminID)
}

func TestDeleteAccount_WaitsForOrdersInProgress(t *testing.T) {
	repo := newMemRepo()
	userID := repo.addUser("Yacine", model.RoleCustomer)
	shirt := repo.addProduct("Shirt", 1000, model.StockEntry{Size: "M", Quantity: 5})
	svc := newTestService(repo, Deps{})
	ctx := context.Background()

	order, _, err := svc.PlaceOrder(ctx, userID, deskOrder(model.LineItem{ProductID: shirt, Size: "M", Quantity: 1}))
	require.NoError(t, err)

	assert.ErrorIs(t, svc.DeleteAccount(ctx, userID), repository.ErrActiveOrders)
	assert.Contains(t, repo.users, userID)

	_, err = svc.ApproveOrReject(ctx, order.ID, false)
	require.NoError(t, err)

	require.NoError(t, svc.DeleteAccount(ctx, userID))
	assert.NotContains(t, repo.users, userID)

	kept, err := svc.GetAllOrders(ctx)
	require.NoError(t, err)
	require.Len(t, kept, 1)
	assert.Zero(t, kept[0].UserID)

	assert.ErrorIs(t, svc.DeleteAccount(ctx, userID), repository.ErrNotFound)
}

func TestDispatchOutbox_DeletedAccount(t *testing.T) {
	repo := newMemRepo()
	userID := repo.addUser("Yacine", model.RoleCustomer)
	repo.addUser("Admin", model.RoleAdmin)
	shirt := repo.addProduct("Shirt", 1000, model.StockEntry{Size: "M", Quantity: 5})
	pusher := &stubPusher{}
	svc := newTestService(repo, Deps{Pusher: pusher})
	ctx := context.Background()

	order, _, err := svc.PlaceOrder(ctx, userID, deskOrder(model.LineItem{ProductID: shirt, Size: "M", Quantity: 1}))
	require.NoError(t, err)
	_, err = svc.ApproveOrReject(ctx, order.ID, false)
	require.NoError(t, err)
	require.NoError(t, svc.DeleteAccount(ctx, userID))

	assert.Equal(t, 2, svc.DispatchOutbox(ctx))
	assert.Equal(t, 0, svc.DispatchOutbox(ctx))
	assert.Empty(t, repo.notifications)
	assert.Empty(t, pusher.sent)
}

func TestGetRelatedProducts(t *testing.T) {
	repo := newMemRepo()
	svc := newTestService(repo, Deps{})
	ctx := context.Background()

	base := repo.addProduct("Base", 1000)
	sameSub := repo.addProduct("Same subcategory", 1000)
	sameCat := repo.addProduct("Same category", 1000)
	other := repo.addProduct("Other", 1000)
	repo.products[sameCat].Subcategory = "Pants"
	repo.products[other].Category = model.CategoryFootwear

	related, err := svc.GetRelatedProducts(ctx, base)
	require.NoError(t, err)

	ids := make([]int64, 0, len(related))
	for _, p := range related {
		ids = append(ids, p.ID)
	}
	assert.Equal(t, []int64{sameSub, sameCat, other}, ids)

	_, err = svc.GetRelatedProducts(ctx, 999)
	assert.ErrorIs(t, err, repository.ErrNotFound)
}

func TestGetRelatedProducts_Limit(t *testing.T) {
	repo := newMemRepo()
	svc := newTestService(repo, Deps{})

	base := repo.addProduct("Base", 1000)
	for range relatedProductsLimit + 3 {
		repo.addProduct("Shirt", 1000)
	}

	related, err := svc.GetRelatedProducts(context.Background(), base)
	require.NoError(t, err)
	assert.Len(t, related, relatedProductsLimit)
}
