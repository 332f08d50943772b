package myvault

import (
	"context"

	"github.com/MarcGrol/paymentforms/lib/mystore"
)

func New(c context.Context) (VaultReadWriter, func(), error) {
	return mystore.New[Keys](c)
}
