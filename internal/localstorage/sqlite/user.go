// Copyright 2021 FerretDB Inc.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/notestore/notestore/internal/localstorage"
	"github.com/notestore/notestore/internal/storageerrors"
	"github.com/notestore/notestore/internal/types"
	"github.com/notestore/notestore/internal/util/fsql"
)

var userColumns = []string{
	"id", "username", "email", "name", "timezone", "privilege", "serviceLevel",
	"creationTimestamp", "modificationTimestamp", "deletionTimestamp", "isActive",
	"shardId", "photoUrl", "photoLastUpdateTimestamp", "isDirty", "isLocal",
}

var userAttributesColumns = []string{
	"id", "defaultLocationName", "defaultLatitude", "defaultLongitude", "preactivation",
	"incomingEmailAddress", "comments", "dateAgreedToTermsOfService", "preferredLanguage", "preferredCountry",
	"clipFullPage", "twitterUserName", "groupName", "recognitionLanguage", "educationalDiscount", "businessAddress",
}

var accountingColumns = []string{
	"id", "uploadLimitEnd", "uploadLimitNextMonth", "premiumServiceStatus", "premiumOrderNumber",
	"premiumServiceStart", "premiumServiceSKU", "lastSuccessfulCharge", "lastFailedCharge",
	"lastFailedChargeReason", "nextPaymentDue",
}

var userFlags = &flagColumns{dirty: "isDirty", local: "isLocal"}

// userExists returns true if the user row exists.
func userExists(ctx context.Context, tx *fsql.Tx, id int32) (bool, error) {
	n, err := count(ctx, tx, "Users/exists", "SELECT COUNT(*) FROM Users WHERE id = ?", int64(id))
	return n > 0, err
}

// writeUser upserts the user row and rewrites its side tables.
func writeUser(ctx context.Context, tx *fsql.Tx, u *types.User) error {
	args := []any{
		int64(u.ID), arg(u.Username), arg(u.Email), arg(u.Name), arg(u.Timezone), arg(u.Privilege), arg(u.ServiceLevel),
		arg(u.Created), arg(u.Updated), arg(u.Deleted), arg(u.Active),
		arg(u.ShardID), arg(u.PhotoURL), arg(u.PhotoLastUpdated), boolArg(u.Dirty), boolArg(u.Local),
	}

	if _, err := exec(ctx, tx, "Users/upsert", upsert("Users", "id", userColumns), args...); err != nil {
		return err
	}

	if err := clearRows(ctx, tx, "UserAttributes", "id", int64(u.ID)); err != nil {
		return err
	}

	var viewedPromotions, recentMailedAddresses []string

	if a := u.Attributes; a != nil {
		args = []any{
			int64(u.ID), arg(a.DefaultLocationName), arg(a.DefaultLatitude), arg(a.DefaultLongitude), arg(a.Preactivation),
			arg(a.IncomingEmailAddress), arg(a.Comments), arg(a.DateAgreedToTermsOfService),
			arg(a.PreferredLanguage), arg(a.PreferredCountry), arg(a.ClipFullPage), arg(a.TwitterUserName),
			arg(a.GroupName), arg(a.RecognitionLanguage), arg(a.EducationalDiscount), arg(a.BusinessAddress),
		}

		if _, err := exec(ctx, tx, "UserAttributes/insert", insert("UserAttributes", userAttributesColumns), args...); err != nil {
			return err
		}

		viewedPromotions, recentMailedAddresses = a.ViewedPromotions, a.RecentMailedAddresses
	}

	if err := userViewedPromotions.write(ctx, tx, u.ID, viewedPromotions); err != nil {
		return err
	}

	if err := userRecentMailedAddresses.write(ctx, tx, u.ID, recentMailedAddresses); err != nil {
		return err
	}

	if err := clearRows(ctx, tx, "Accounting", "id", int64(u.ID)); err != nil {
		return err
	}

	if a := u.Accounting; a != nil {
		args = []any{
			int64(u.ID), arg(a.UploadLimitEnd), arg(a.UploadLimitNextMonth), arg(a.PremiumServiceStatus),
			arg(a.PremiumOrderNumber), arg(a.PremiumServiceStart), arg(a.PremiumServiceSKU),
			arg(a.LastSuccessfulCharge), arg(a.LastFailedCharge), arg(a.LastFailedChargeReason), arg(a.NextPaymentDue),
		}

		if _, err := exec(ctx, tx, "Accounting/insert", insert("Accounting", accountingColumns), args...); err != nil {
			return err
		}
	}

	return nil
}

// readUserAttributes returns user attributes, or nil if there are none.
func readUserAttributes(ctx context.Context, tx *fsql.Tx, id int32) (*types.UserAttributes, error) {
	const sid = "UserAttributes/select"

	stmt, err := tx.Stmt(ctx, sid, "SELECT "+strings.Join(userAttributesColumns[1:], ", ")+" FROM UserAttributes WHERE id = ?")
	if err != nil {
		return nil, sqlError(sid, err)
	}

	var a types.UserAttributes

	err = stmt.QueryRowContext(ctx, int64(id)).Scan(
		&a.DefaultLocationName, &a.DefaultLatitude, &a.DefaultLongitude, &a.Preactivation,
		&a.IncomingEmailAddress, &a.Comments, &a.DateAgreedToTermsOfService,
		&a.PreferredLanguage, &a.PreferredCountry, &a.ClipFullPage, &a.TwitterUserName,
		&a.GroupName, &a.RecognitionLanguage, &a.EducationalDiscount, &a.BusinessAddress,
	)

	switch {
	case errors.Is(err, sql.ErrNoRows):
		return nil, nil
	case err != nil:
		return nil, sqlError(sid, err)
	}

	if a.ViewedPromotions, err = userViewedPromotions.read(ctx, tx, id); err != nil {
		return nil, err
	}

	if a.RecentMailedAddresses, err = userRecentMailedAddresses.read(ctx, tx, id); err != nil {
		return nil, err
	}

	return &a, nil
}

// readAccounting returns user accounting, or nil if there is none.
func readAccounting(ctx context.Context, tx *fsql.Tx, id int32) (*types.Accounting, error) {
	const sid = "Accounting/select"

	stmt, err := tx.Stmt(ctx, sid, "SELECT "+strings.Join(accountingColumns[1:], ", ")+" FROM Accounting WHERE id = ?")
	if err != nil {
		return nil, sqlError(sid, err)
	}

	var a types.Accounting

	err = stmt.QueryRowContext(ctx, int64(id)).Scan(
		&a.UploadLimitEnd, &a.UploadLimitNextMonth, &a.PremiumServiceStatus, &a.PremiumOrderNumber,
		&a.PremiumServiceStart, &a.PremiumServiceSKU, &a.LastSuccessfulCharge, &a.LastFailedCharge,
		&a.LastFailedChargeReason, &a.NextPaymentDue,
	)

	switch {
	case errors.Is(err, sql.ErrNoRows):
		return nil, nil
	case err != nil:
		return nil, sqlError(sid, err)
	default:
		return &a, nil
	}
}

// findUser returns the user with all side tables, or NotFound error.
func findUser(ctx context.Context, tx *fsql.Tx, id int32) (*types.User, error) {
	const sid = "Users/find"

	stmt, err := tx.Stmt(ctx, sid, "SELECT "+strings.Join(userColumns, ", ")+" FROM Users WHERE id = ?")
	if err != nil {
		return nil, sqlError(sid, err)
	}

	var u types.User

	err = stmt.QueryRowContext(ctx, int64(id)).Scan(
		&u.ID, &u.Username, &u.Email, &u.Name, &u.Timezone, &u.Privilege, &u.ServiceLevel,
		&u.Created, &u.Updated, &u.Deleted, &u.Active,
		&u.ShardID, &u.PhotoURL, &u.PhotoLastUpdated, &u.Dirty, &u.Local,
	)

	switch {
	case errors.Is(err, sql.ErrNoRows):
		return nil, notFound("user", "id", id)
	case err != nil:
		return nil, sqlError(sid, err)
	}

	if u.Attributes, err = readUserAttributes(ctx, tx, id); err != nil {
		return nil, err
	}

	if u.Accounting, err = readAccounting(ctx, tx, id); err != nil {
		return nil, err
	}

	return &u, nil
}

// CountUsers implements localstorage.Storage interface.
func (s *storage) CountUsers(ctx context.Context) (int, error) {
	var res int

	err := s.read(ctx, func(tx *fsql.Tx) error {
		var err error
		res, err = count(ctx, tx, "Users/count", "SELECT COUNT(*) FROM Users WHERE deletionTimestamp IS NULL")

		return err
	})

	return res, err
}

// AddUser implements localstorage.Storage interface.
func (s *storage) AddUser(ctx context.Context, user *types.User) error {
	return s.write(ctx, func(tx *fsql.Tx) error {
		exists, err := userExists(ctx, tx, user.ID)
		if err != nil {
			return err
		}

		if exists {
			return storageerrors.Errorf(storageerrors.ErrorCodeAlreadyExists, "user with id %d already exists", user.ID)
		}

		return writeUser(ctx, tx, user)
	})
}

// UpdateUser implements localstorage.Storage interface.
func (s *storage) UpdateUser(ctx context.Context, user *types.User) error {
	return s.write(ctx, func(tx *fsql.Tx) error {
		exists, err := userExists(ctx, tx, user.ID)
		if err != nil {
			return err
		}

		if !exists {
			return notFound("user", "id", user.ID)
		}

		return writeUser(ctx, tx, user)
	})
}

// FindUser implements localstorage.Storage interface.
func (s *storage) FindUser(ctx context.Context, id int32) (*types.User, error) {
	var res *types.User

	err := s.read(ctx, func(tx *fsql.Tx) error {
		var err error
		res, err = findUser(ctx, tx, id)

		return err
	})

	return res, err
}

// userOrderColumn returns the sort column.
func userOrderColumn(order localstorage.UserOrder) string {
	switch order {
	case localstorage.UserOrderByUsername:
		return "username"
	case localstorage.UserOrderByCreationTimestamp:
		return "creationTimestamp"
	default:
		return ""
	}
}

// ListUsers implements localstorage.Storage interface.
func (s *storage) ListUsers(ctx context.Context, opts *localstorage.ListOptions[localstorage.UserOrder]) ([]*types.User, error) {
	var res []*types.User

	err := s.read(ctx, func(tx *fsql.Tx) error {
		lq := newListQuery("Users", "id", userFlags, userOrderColumn(opts.Order), opts)

		keys, err := lq.keys(ctx, tx)
		if err != nil {
			return err
		}

		for _, key := range keys {
			id, err := strconv.ParseInt(key, 10, 32)
			if err != nil {
				return err
			}

			u, err := findUser(ctx, tx, int32(id))
			if err != nil {
				return err
			}

			res = append(res, u)
		}

		return nil
	})

	return res, err
}

// DeleteUser implements localstorage.Storage interface.
//
// The deletion timestamp is kept if it is already set.
func (s *storage) DeleteUser(ctx context.Context, id int32) error {
	return s.write(ctx, func(tx *fsql.Tx) error {
		n, err := exec(
			ctx, tx, "Users/delete",
			"UPDATE Users SET deletionTimestamp = COALESCE(deletionTimestamp, ?), isActive = 0 WHERE id = ?",
			time.Now().UnixMilli(), int64(id),
		)
		if err != nil {
			return err
		}

		if n == 0 {
			return notFound("user", "id", id)
		}

		return nil
	})
}

// ExpungeUser implements localstorage.Storage interface.
func (s *storage) ExpungeUser(ctx context.Context, id int32) error {
	return s.write(ctx, func(tx *fsql.Tx) error {
		n, err := exec(ctx, tx, "Users/expunge", "DELETE FROM Users WHERE id = ?", int64(id))
		if err != nil {
			return err
		}

		if n == 0 {
			return notFound("user", "id", id)
		}

		return nil
	})
}
