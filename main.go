/*
SPDX-License-Identifier: Apache-2.0
*/

package main

import (
	"log"

	"github.com/buythedibs/az-token-sale-to-airdrop/sale"
	"github.com/p2eengineering/kalp-sdk-public/kalpsdk"
)

func main() {
	contract := kalpsdk.Contract{IsPayableContract: false}
	contract.Logger = kalpsdk.NewLogger()
	saleChaincode, err := kalpsdk.NewChaincode(&sale.SmartContract{Contract: contract})
	if err != nil {
		log.Panicf("Error creating sale chaincode: %v", err)
	}

	if err := saleChaincode.Start(); err != nil {
		log.Panicf("Error starting sale chaincode: %v", err)
	}
}
