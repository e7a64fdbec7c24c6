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

package types

// PrivilegeLevel represents user's service privilege.
type PrivilegeLevel int32

// Privilege levels.
const (
	PrivilegeNormal  PrivilegeLevel = 1
	PrivilegePremium PrivilegeLevel = 3
	PrivilegeVIP     PrivilegeLevel = 5
	PrivilegeManager PrivilegeLevel = 7
	PrivilegeSupport PrivilegeLevel = 8
	PrivilegeAdmin   PrivilegeLevel = 9
)

// User represents a service account.
type User struct {
	ID               int32
	Username         *string
	Email            *string
	Name             *string
	Timezone         *string
	Privilege        *PrivilegeLevel
	ServiceLevel     *int32
	Created          *Timestamp
	Updated          *Timestamp
	Deleted          *Timestamp
	Active           *bool
	ShardID          *string
	PhotoURL         *string
	PhotoLastUpdated *Timestamp

	Attributes *UserAttributes
	Accounting *Accounting

	Dirty bool
	Local bool
}

// UserAttributes represents optional user attributes.
type UserAttributes struct {
	DefaultLocationName        *string
	DefaultLatitude            *float64
	DefaultLongitude           *float64
	Preactivation              *bool
	ViewedPromotions           []string
	IncomingEmailAddress       *string
	RecentMailedAddresses      []string
	Comments                   *string
	DateAgreedToTermsOfService *Timestamp
	PreferredLanguage          *string
	PreferredCountry           *string
	ClipFullPage               *bool
	TwitterUserName            *string
	GroupName                  *string
	RecognitionLanguage        *string
	EducationalDiscount        *bool
	BusinessAddress            *string
}

// Accounting represents user's billing state.
type Accounting struct {
	UploadLimitEnd         *Timestamp
	UploadLimitNextMonth   *int64
	PremiumServiceStatus   *int32
	PremiumOrderNumber     *string
	PremiumServiceStart    *Timestamp
	PremiumServiceSKU      *string
	LastSuccessfulCharge   *Timestamp
	LastFailedCharge       *Timestamp
	LastFailedChargeReason *string
	NextPaymentDue         *Timestamp
}

// Validate checks that user could be stored.
func (u *User) Validate() error {
	if u.ID < 0 {
		return newValidationError("id", "must not be negative")
	}

	if err := validateString("username", u.Username, usernameRE, usernameLenMin, usernameLenMax); err != nil {
		return err
	}

	if err := validateString("email", u.Email, emailRE, emailLenMin, emailLenMax); err != nil {
		return err
	}

	if err := validateString("name", u.Name, nil, nameLenMin, nameLenMax); err != nil {
		return err
	}

	if err := validateString("timezone", u.Timezone, timezoneRE, timezoneLenMin, timezoneLenMax); err != nil {
		return err
	}

	if a := u.Attributes; a != nil {
		if a.DefaultLatitude != nil && (*a.DefaultLatitude < -90 || *a.DefaultLatitude > 90) {
			return newValidationError("attributes.defaultLatitude", "out of range")
		}

		if a.DefaultLongitude != nil && (*a.DefaultLongitude < -180 || *a.DefaultLongitude > 180) {
			return newValidationError("attributes.defaultLongitude", "out of range")
		}
	}

	return nil
}
